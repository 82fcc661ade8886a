package config

import (
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestNbFormatterPlain(t *testing.T) {
	t.Parallel()

	entry := &log.Entry{
		Logger:  log.New(),
		Time:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "flood\nmuted",
		Data: log.Fields{
			"user_id": 42,
			"object":  "Coordinator",
			"empty":   "",
		},
	}

	out, err := (&NbFormatter{DisableColors: true}).Format(entry)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	got := string(out)
	want := `level=WARN ts=2024-05-01 12:00:00.000 object="Coordinator" user_id=42 msg="flood\nmuted"` + "\n"
	if got != want {
		t.Fatalf("unexpected output:\n got %q\nwant %q", got, want)
	}
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("entry must stay on one line")
	}
}
