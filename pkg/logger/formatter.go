package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// correlationKeys tie an entry to a request, a ride or a payment. The text
// formatter prints them ahead of the other fields.
var correlationKeys = []string{"request_id", "ride_id", "payment_id", "user_id"}

type CustomJSONFormatter struct {
	TimestampFormat string
	AppName         string
	Version         string
}

type CustomTextFormatter struct {
	TimestampFormat string
	AppName         string
}

func entryBuffer(entry *logrus.Entry) *bytes.Buffer {
	if entry.Buffer != nil {
		return entry.Buffer
	}
	return &bytes.Buffer{}
}

func caller(entry *logrus.Entry) string {
	return fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
}

func (f *CustomJSONFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	data := make(logrus.Fields, len(entry.Data)+5)
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		data[k] = v
	}

	layout := f.TimestampFormat
	if layout == "" {
		layout = time.RFC3339
	}
	data["timestamp"] = entry.Time.Format(layout)
	data["level"] = entry.Level.String()
	data["message"] = entry.Message
	if f.AppName != "" {
		data["app"] = f.AppName
	}
	if f.Version != "" {
		data["version"] = f.Version
	}
	if entry.HasCaller() {
		data["caller"] = caller(entry)
	}

	b := entryBuffer(entry)
	if err := json.NewEncoder(b).Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode log entry: %w", err)
	}
	return b.Bytes(), nil
}

// Format writes "time [LEVEL] [app] message corr=... k=v", with the
// correlation ids first and the remaining fields sorted.
func (f *CustomTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entryBuffer(entry)

	layout := f.TimestampFormat
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}
	fmt.Fprintf(b, "%s [%s] ", entry.Time.Format(layout), strings.ToUpper(entry.Level.String()))
	if f.AppName != "" {
		fmt.Fprintf(b, "[%s] ", f.AppName)
	}
	if entry.HasCaller() {
		fmt.Fprintf(b, "[%s] ", caller(entry))
	}
	b.WriteString(entry.Message)

	seen := make(map[string]bool, len(correlationKeys))
	for _, k := range correlationKeys {
		if v, ok := entry.Data[k]; ok {
			fmt.Fprintf(b, " %s=%v", k, v)
			seen[k] = true
		}
	}

	rest := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
