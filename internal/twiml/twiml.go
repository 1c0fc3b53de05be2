// Package twiml builds the declarative call-treatment documents the
// carrier executes. The carrier blocks on the webhook response, so a
// handler must always produce a well-formed document, error paths
// included.
package twiml

import (
	"encoding/xml"
	"fmt"
)

// Response is an ordered sequence of verbs. Order is meaningful: the
// carrier executes top to bottom.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []interface{}
}

// Play plays an audio file at a URL.
type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

// Say synthesizes speech from text.
type Say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

// Record starts recording the caller until silence or MaxLength.
type Record struct {
	XMLName   xml.Name `xml:"Record"`
	Action    string   `xml:"action,attr,omitempty"`
	Method    string   `xml:"method,attr,omitempty"`
	MaxLength int      `xml:"maxLength,attr,omitempty"`
	Trim      string   `xml:"trim,attr,omitempty"`
	// RecordingStatusCallback is invoked once the recording media is
	// ready, independent of the call.
	RecordingStatusCallback string `xml:"recordingStatusCallback,attr,omitempty"`
	Transcribe              bool   `xml:"transcribe,attr"`
	PlayBeep                bool   `xml:"playBeep,attr"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

func (r *Response) Add(verbs ...interface{}) *Response {
	r.Verbs = append(r.Verbs, verbs...)
	return r
}

// Render marshals the document with the XML declaration the carrier
// expects.
func (r *Response) Render() ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal call treatment: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
