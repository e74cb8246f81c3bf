package proto

import (
	"bytes"
	"reflect"
	"testing"
)

func TestMarshalInfoRequest(t *testing.T) {
	frame := MarshalInfoRequest("node", "partition-generation")

	want := append(
		[]byte{2, 1, 0, 0, 0, 0, 0, 26},
		[]byte("node\npartition-generation\n")...,
	)
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = % x, want % x", frame, want)
	}
}

func TestParseInfoResponse(t *testing.T) {
	tests := map[string]struct {
		payload string
		want    map[string]string
	}{
		"SingleValue": {
			payload: "node\tBB9020011AC4202\n",
			want:    map[string]string{"node": "BB9020011AC4202"},
		},
		"MultipleValues": {
			payload: "node\tA1\npartition-generation\t42\nfeatures\tpscans;cdt-list\n",
			want: map[string]string{
				"node":                 "A1",
				"partition-generation": "42",
				"features":             "pscans;cdt-list",
			},
		},
		"ValueWithTabs": {
			payload: "statistics\ta=1\tb=2\n",
			want:    map[string]string{"statistics": "a=1\tb=2"},
		},
		"UnknownCommand": {
			payload: "nosuchcommand\n",
			want:    map[string]string{"nosuchcommand": ""},
		},
		"Empty": {
			payload: "",
			want:    map[string]string{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := ParseInfoResponse([]byte(tc.payload))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("parsed = %v, want %v", got, tc.want)
			}
		})
	}
}

// pipeConn echoes a canned response to any request, for exercising
// RequestInfo without a socket
type pipeConn struct {
	request  bytes.Buffer
	response *bytes.Reader
}

func (p *pipeConn) Write(b []byte) (int, error) { return p.request.Write(b) }
func (p *pipeConn) Read(b []byte) (int, error)  { return p.response.Read(b) }

func TestRequestInfo(t *testing.T) {
	payload := []byte("node\tA1\n")
	frame := append([]byte{2, 1, 0, 0, 0, 0, 0, byte(len(payload))}, payload...)
	conn := &pipeConn{response: bytes.NewReader(frame)}

	values, err := RequestInfo(conn, "node")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values["node"] != "A1" {
		t.Errorf("node = %q, want %q", values["node"], "A1")
	}
	if !bytes.Equal(conn.request.Bytes(), MarshalInfoRequest("node")) {
		t.Errorf("request = % x", conn.request.Bytes())
	}
}
