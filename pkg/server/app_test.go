package server

import (
	"testing"

	"FundPilot/pkg/config"
	xhttp "FundPilot/pkg/http"
	applogger "FundPilot/pkg/logger"
)

type orderedCloser struct {
	name  string
	order *[]string
}

func (c *orderedCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestShutdownClosesResourcesInReverseOrder(t *testing.T) {
	lgr, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	app := New(&config.Config{}, lgr, nil)
	app.httpServer = xhttp.NewServer(nil)

	var order []string
	app.AddCloser(&orderedCloser{name: "database", order: &order})
	app.AddCloser(&orderedCloser{name: "recorder", order: &order})
	app.AddCloser(&orderedCloser{name: "sink", order: &order})
	app.AddCloser(nil)

	if err := app.shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	want := []string{"sink", "recorder", "database"}
	if len(order) != len(want) {
		t.Fatalf("closed %d resources, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("close order = %v, want %v", order, want)
		}
	}
}
