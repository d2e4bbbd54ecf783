package metrics_test

import (
	"expvar"
	"testing"

	"github.com/ardanlabs/minichain/business/sys/metrics"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Chain(t *testing.T) {
	t.Log("Given the need to report the chain on the debug metrics.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the chain grows after publishing.", testID)
		{
			blocks, peers := 1, 0
			metrics.PublishChain(func() (int, int) { return blocks, peers })

			if got := expvar.Get("blocks").String(); got != "1" {
				t.Fatalf("\t%s\tTest %d:\tShould report 1 block, got %s.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould report the current blocks.", success, testID)

			blocks, peers = 5, 2

			if got := expvar.Get("blocks").String(); got != "5" {
				t.Fatalf("\t%s\tTest %d:\tShould report 5 blocks without a refresh, got %s.", failed, testID, got)
			}
			if got := expvar.Get("peers").String(); got != "2" {
				t.Fatalf("\t%s\tTest %d:\tShould report 2 peers without a refresh, got %s.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould report values read at serve time.", success, testID)
		}
	}
}
