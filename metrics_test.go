package phonecomplete

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		descs := make(chan *prometheus.Desc, 4)
		c.Describe(descs)
		close(descs)
		for desc := range descs {
			if strings.Contains(desc.String(), `help: ""`) {
				t.Errorf("metric has no help text: %s", desc)
			}
		}
	}
}
