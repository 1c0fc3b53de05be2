package twiml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOrdersVerbs(t *testing.T) {
	resp := (&Response{}).Add(
		Play{URL: "https://cdn.example.com/greeting.mp3"},
		Record{MaxLength: 240, Trim: "trim-silence", RecordingStatusCallback: "https://app.example.com/webhooks/recording"},
		Say{Text: "Thank you for your message. Goodbye!"},
		Hangup{},
	)

	out, err := resp.Render()
	require.NoError(t, err)

	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, "<?xml"), "document must carry the XML declaration")

	playIdx := strings.Index(doc, "<Play>")
	recordIdx := strings.Index(doc, "<Record")
	sayIdx := strings.Index(doc, "<Say>")
	hangupIdx := strings.Index(doc, "<Hangup>")

	require.NotEqual(t, -1, playIdx)
	require.NotEqual(t, -1, recordIdx)
	require.NotEqual(t, -1, sayIdx)
	require.NotEqual(t, -1, hangupIdx)

	assert.Less(t, playIdx, recordIdx)
	assert.Less(t, recordIdx, sayIdx)
	assert.Less(t, sayIdx, hangupIdx)
}

func TestRenderRecordAttributes(t *testing.T) {
	resp := (&Response{}).Add(Record{
		MaxLength:               90,
		Trim:                    "trim-silence",
		RecordingStatusCallback: "https://app.example.com/webhooks/recording",
		Transcribe:              false,
		PlayBeep:                true,
	})

	out, err := resp.Render()
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, `maxLength="90"`)
	assert.Contains(t, doc, `trim="trim-silence"`)
	assert.Contains(t, doc, `transcribe="false"`)
	assert.Contains(t, doc, `playBeep="true"`)
	assert.Contains(t, doc, `recordingStatusCallback="https://app.example.com/webhooks/recording"`)
}

func TestRenderEscapesText(t *testing.T) {
	resp := (&Response{}).Add(Say{Text: "Tom & Jerry's line"})

	out, err := resp.Render()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Tom &amp; Jerry")
}
