package log

import "testing"

func TestSetLoggerAcceptsSettingsMap(t *testing.T) {
	setts := map[string]interface{}{
		"log.level": "info",
		"log.file":  "",
	}
	if l := SetLogger(nil, setts); l == nil {
		t.Fatalf("expected a non-nil logger")
	}
}

func TestFacadeFunctionsDoNotPanic(t *testing.T) {
	SetLogger(nil, map[string]interface{}{"log.level": "ignore", "log.file": ""})
	// Fatalf is deliberately not exercised here: golog's Fatalf, like
	// the standard library's, terminates the process.
	Errorf("unreachable at ignore level: %v", 1)
	Warnf("unreachable at ignore level: %v", 1)
	Infof("unreachable at ignore level: %v", 1)
	Verbosef("unreachable at ignore level: %v", 1)
	Debugf("unreachable at ignore level: %v", 1)
	Tracef("unreachable at ignore level: %v", 1)
}
