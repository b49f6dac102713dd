// Package response turns a finished fiberpath process into a payload or a
// classified error.
//
// The classification order is fixed: a non-zero exit is a *ProcessError no
// matter what stdout holds; a zero exit whose stdout is not valid JSON is a
// *ParseError; a missing artifact after a zero exit is an *ArtifactReadError.
// Schema mismatches and digest failures never fail an operation. They are
// reported in Result.Notes.
package response

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gowebpki/jcs"

	"github.com/fiberpath/bridge/internal/executor"
)

// Result is a successful operation's payload.
type Result struct {
	// Payload is the tool's JSON value. Objects decode to map[string]any.
	Payload any `json:"payload"`
	// Digest is the sha256 of the RFC 8785 canonical payload, empty for
	// payloads that are not JSON values.
	Digest string `json:"digest,omitempty"`
	// Notes lists non-fatal findings such as a schema mismatch.
	Notes []string `json:"-"`
}

// Object returns the payload as a JSON object, or nil.
func (r Result) Object() map[string]any {
	m, _ := r.Payload.(map[string]any)
	return m
}

// Interpret classifies an outcome. When wantJSON is false the trimmed stdout
// is returned as a string payload. schema may be nil.
func Interpret(out executor.Outcome, wantJSON bool, schema *Schema) (Result, error) {
	if out.ExitCode != 0 {
		return Result{}, newProcessError(out.ExitCode, out.Stdout, out.Stderr)
	}
	if !wantJSON {
		return Result{Payload: string(bytes.TrimSpace(out.Stdout))}, nil
	}

	raw := bytes.TrimSpace(out.Stdout)
	payload, err := decode(raw)
	if err != nil {
		return Result{}, &ParseError{Stdout: string(raw), Err: err}
	}

	res := Result{Payload: payload}
	if err := schema.Validate(raw); err != nil {
		res.Notes = append(res.Notes, err.Error())
	}
	res.Redigest()
	return res, nil
}

// Redigest recomputes Digest after the payload changed. On failure Digest is
// left empty and the error is added to Notes.
func (r *Result) Redigest() {
	digest, err := Digest(r.Payload)
	if err != nil {
		r.Digest = ""
		r.Notes = append(r.Notes, err.Error())
		return
	}
	r.Digest = digest
}

// decode parses exactly one JSON value.
func decode(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty output")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// Digest returns the hex sha256 of v's canonical JSON form.
func Digest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ReadArtifact reads a file the tool wrote.
func ReadArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ArtifactReadError{Path: path, Err: err}
	}
	return data, nil
}
