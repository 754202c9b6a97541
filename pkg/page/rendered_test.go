package page

import (
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
)

type documentEvent struct {
	frame  cdp.FrameID
	status int64
}

func TestDocumentStatus_MainFrameOnly(t *testing.T) {
	const main, ad = cdp.FrameID("8D1A"), cdp.FrameID("F00D")

	tests := []struct {
		name    string
		setMain bool
		events  []documentEvent
		want    int64
	}{
		{"iframe error after main page", true, []documentEvent{{main, 200}, {ad, 404}}, 200},
		{"main page error", true, []documentEvent{{ad, 200}, {main, 503}}, 503},
		{"main frame unknown", false, []documentEvent{{main, 500}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d documentStatus
			if tt.setMain {
				d.setMainFrame(main)
			}
			for _, ev := range tt.events {
				d.observe(ev.frame, ev.status)
			}
			assert.Equal(t, tt.want, d.status.Load())
		})
	}
}
