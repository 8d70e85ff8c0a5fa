package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/hashchain/foundation/logger"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestNew(t *testing.T) {
	t.Log("Given the need to write structured logs.")
	{
		path := filepath.Join(t.TempDir(), "log.json")

		log, err := logger.New("TEST", path)
		if err != nil {
			t.Fatalf("\t%s\tShould construct the logger: %v", failed, err)
		}
		t.Logf("\t%s\tShould construct the logger.", success)

		log.Infow("mined", "traceid", "abc")
		log.Sync()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("\t%s\tShould read the log file: %v", failed, err)
		}

		var entry map[string]any
		if err := json.Unmarshal(data, &entry); err != nil {
			t.Fatalf("\t%s\tShould write JSON: %v", failed, err)
		}

		if entry["service"] != "TEST" || entry["msg"] != "mined" || entry["traceid"] != "abc" {
			t.Fatalf("\t%s\tShould carry the service and fields: %v", failed, entry)
		}
		t.Logf("\t%s\tShould carry the service and fields.", success)
	}
}
