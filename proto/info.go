package proto

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/ValentinKolb/aspike/lib/types"
)

// --------------------------------------------------------------------------
// Info Protocol
// --------------------------------------------------------------------------
//
// The admin side channel is text based: a type-1 frame whose payload is
// newline-separated command names; the response frame answers with
// "name\tvalue\n" lines. Nodes are bootstrapped over it (node id,
// partition generation, feature list) and partition maps are fetched with
// the replicas-all command.

// MarshalInfoRequest builds an info frame asking for the given commands.
func MarshalInfoRequest(names ...string) []byte {
	size := 0
	for _, name := range names {
		size += len(name) + 1
	}

	result := make([]byte, protoHeaderSize, protoHeaderSize+size)
	result[0] = protoVersion
	result[1] = FrameInfo
	result[2] = byte(size >> 40)
	result[3] = byte(size >> 32)
	binary.BigEndian.PutUint32(result[4:8], uint32(size))

	for _, name := range names {
		result = append(result, name...)
		result = append(result, '\n')
	}
	return result
}

// ParseInfoResponse splits an info response payload into a name-to-value
// map. Lines without a value (commands the server does not know) map to
// the empty string.
func ParseInfoResponse(payload []byte) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		name, value, _ := strings.Cut(line, "\t")
		values[name] = value
	}
	return values
}

// ParseInfoRequest splits an info request payload into its command names.
func ParseInfoRequest(payload []byte) []string {
	var names []string
	for _, name := range strings.Split(string(payload), "\n") {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// MarshalInfoResponse builds an info response frame answering the given
// commands in order; resolve maps a command to its value.
func MarshalInfoResponse(names []string, resolve func(name string) string) []byte {
	var body []byte
	for _, name := range names {
		body = append(body, name...)
		body = append(body, '\t')
		body = append(body, resolve(name)...)
		body = append(body, '\n')
	}
	return WrapFrame(FrameInfo, body)
}

// RequestInfo sends the given commands over rw and parses the response.
// Deadlines are the caller's business.
func RequestInfo(rw io.ReadWriter, names ...string) (map[string]string, error) {
	if _, err := rw.Write(MarshalInfoRequest(names...)); err != nil {
		return nil, types.WrapError(types.ErrConnection, "write info request", err)
	}

	frameType, payload, err := ReadFrame(rw)
	if err != nil {
		return nil, err
	}
	if frameType != FrameInfo {
		return nil, types.NewErrorf(types.ErrBadResponse,
			"expected info frame, got type %d", frameType)
	}
	return ParseInfoResponse(payload), nil
}
