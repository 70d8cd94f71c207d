package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		name  string
		debug bool
		want  logrus.Level
	}{
		{"info", false, logrus.InfoLevel},
		{"warn", false, logrus.WarnLevel},
		{" ERROR ", false, logrus.ErrorLevel},
		{"bogus", false, logrus.InfoLevel},
		{"", false, logrus.InfoLevel},
		{"error", true, logrus.DebugLevel},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.name, tc.debug); got != tc.want {
			t.Errorf("ParseLevel(%q, %v) = %v, want %v", tc.name, tc.debug, got, tc.want)
		}
	}
}

func TestInitLoggerMutatesSharedLogger(t *testing.T) {
	l := GetLogger()
	InitLogger(logrus.WarnLevel)
	if GetLogger() != l {
		t.Fatal("expected the same logger instance")
	}
	if l.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level = %v, want warn", l.GetLevel())
	}
	InitLogger(logrus.InfoLevel)
}
