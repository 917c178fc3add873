// Copyright 2019 Google LLC
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file or at
// https://developers.google.com/open-source/licenses/bsd

package osshkey

import (
	"bytes"
	"encoding/base64"
)

// columnsPerLine is the base64 line width OpenSSH wraps its private key
// PEM bodies at. RFC 7468 doesn't mandate a width, and stdlib
// encoding/pem hardcodes 64, so this package wraps its own to match what
// ssh-keygen actually emits.
const columnsPerLine = 70

// newlineWriter is a byte sink that inserts '\n' every columnsPerLine
// bytes written to it, the way the teacher's armor writer wraps its own
// base64 body.
type newlineWriter struct {
	dst     *bytes.Buffer
	written int
}

func (w *newlineWriter) Write(p []byte) (int, error) {
	n := 0
	for len(p) > 0 {
		remaining := columnsPerLine - (w.written % columnsPerLine)
		if remaining == columnsPerLine && w.written != 0 {
			w.dst.WriteByte('\n')
		}
		toWrite := remaining
		if toWrite > len(p) {
			toWrite = len(p)
		}
		w.dst.Write(p[:toWrite])
		w.written += toWrite
		n += toWrite
		p = p[toWrite:]
	}
	return n, nil
}

// encodePemBlock renders body as a PEM block under label, base64-encoded
// and wrapped at columnsPerLine.
func encodePemBlock(label string, body []byte) []byte {
	var out bytes.Buffer
	out.WriteString("-----BEGIN " + label + "-----\n")
	enc := base64.NewEncoder(base64.StdEncoding, &newlineWriter{dst: &out})
	enc.Write(body)
	enc.Close()
	out.WriteByte('\n')
	out.WriteString("-----END " + label + "-----\n")
	return out.Bytes()
}

// decodePemBlock parses a single PEM block, returning its label, decoded
// body, and any bytes following the END line. It fails on anything that
// isn't a clean, single BEGIN/END pair: no preceding garbage, no PEM
// headers, well-formed base64.
func decodePemBlock(data []byte) (label string, body []byte, rest []byte, err error) {
	const beginPrefix = "-----BEGIN "
	const endMarker = "-----"

	if !bytes.HasPrefix(data, []byte(beginPrefix)) {
		return "", nil, nil, errorf(KindPemLabel, "missing PEM BEGIN line")
	}
	firstLineEnd := bytes.IndexByte(data, '\n')
	if firstLineEnd < 0 {
		return "", nil, nil, errorf(KindPemLabel, "truncated PEM BEGIN line")
	}
	firstLine := string(data[:firstLineEnd])
	if !bytes.HasSuffix([]byte(firstLine), []byte(endMarker)) {
		return "", nil, nil, errorf(KindPemLabel, "malformed PEM BEGIN line")
	}
	label = firstLine[len(beginPrefix) : len(firstLine)-len(endMarker)]

	endLine := "-----END " + label + "-----"
	bodyStart := firstLineEnd + 1
	idx := bytes.Index(data[bodyStart:], []byte(endLine))
	if idx < 0 {
		return "", nil, nil, errorf(KindPemLabel, "missing PEM END line for %q", label)
	}
	b64 := bytes.ReplaceAll(data[bodyStart:bodyStart+idx], []byte("\n"), nil)
	b64 = bytes.ReplaceAll(b64, []byte("\r"), nil)

	body, err = base64.StdEncoding.DecodeString(string(b64))
	if err != nil {
		return "", nil, nil, errorf(KindFormatEncoding, "invalid base64 in PEM body: %v", err)
	}

	restStart := bodyStart + idx + len(endLine)
	rest = data[restStart:]
	rest = bytes.TrimPrefix(rest, []byte("\n"))
	return label, body, rest, nil
}
