package io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
)

// maxLine bounds a single line of an Aldebaran file.
const maxLine = 1 << 20

// ReadAUT decodes an Aldebaran file. The transition and state counts in the
// header are checked against the body.
func ReadAUT(r io.Reader) (graph.Model, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		m      graph.Model
		header bool
		want   int
		line   int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if !header {
			init, trans, states, err := parseHeader(text)
			if err != nil {
				return graph.Model{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", line)
			}
			m.Initial = init
			m.States = make([]string, states)
			for i := range m.States {
				m.States[i] = strconv.Itoa(i)
			}
			m.Transitions = make([]graph.Transition, 0, trans)
			want = trans
			header = true
			continue
		}
		t, err := parseTransition(text)
		if err != nil {
			return graph.Model{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", line)
		}
		m.Transitions = append(m.Transitions, t)
	}
	if err := sc.Err(); err != nil {
		return graph.Model{}, fmt.Errorf("read: %w", err)
	}
	if !header {
		return graph.Model{}, errors.New(errors.ErrCodeInvalidFormat, "missing des header")
	}
	if len(m.Transitions) != want {
		return graph.Model{}, errors.New(errors.ErrCodeInvalidFormat,
			"header announces %d transitions, found %d", want, len(m.Transitions))
	}
	if err := m.Validate(); err != nil {
		return graph.Model{}, err
	}
	return m, nil
}

// parseHeader reads "des (initial, transitions, states)".
func parseHeader(s string) (initial, transitions, states int, err error) {
	rest, ok := strings.CutPrefix(s, "des")
	if !ok {
		return 0, 0, 0, fmt.Errorf("expected des header, got %q", s)
	}
	inner, err := parenthesized(strings.TrimSpace(rest))
	if err != nil {
		return 0, 0, 0, err
	}
	fields := strings.Split(inner, ",")
	if len(fields) != 3 {
		return 0, 0, 0, fmt.Errorf("des header needs 3 fields, got %d", len(fields))
	}
	var v [3]int
	for i, f := range fields {
		if v[i], err = strconv.Atoi(strings.TrimSpace(f)); err != nil || v[i] < 0 {
			return 0, 0, 0, fmt.Errorf("des field %d: %q is not a count", i+1, strings.TrimSpace(f))
		}
	}
	return v[0], v[1], v[2], nil
}

// parseTransition reads `(from, "label", to)`. The label may contain commas,
// so the state fields are taken from either end.
func parseTransition(s string) (graph.Transition, error) {
	inner, err := parenthesized(s)
	if err != nil {
		return graph.Transition{}, err
	}
	first := strings.IndexByte(inner, ',')
	last := strings.LastIndexByte(inner, ',')
	if first < 0 || first == last {
		return graph.Transition{}, fmt.Errorf("transition %q needs 3 fields", s)
	}
	from, err := strconv.Atoi(strings.TrimSpace(inner[:first]))
	if err != nil {
		return graph.Transition{}, fmt.Errorf("source state in %q: %w", s, err)
	}
	to, err := strconv.Atoi(strings.TrimSpace(inner[last+1:]))
	if err != nil {
		return graph.Transition{}, fmt.Errorf("target state in %q: %w", s, err)
	}
	label := strings.TrimSpace(inner[first+1 : last])
	if len(label) >= 2 && label[0] == '"' && label[len(label)-1] == '"' {
		label = label[1 : len(label)-1]
	}
	return graph.Transition{From: from, To: to, Label: label}, nil
}

func parenthesized(s string) (string, error) {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return "", fmt.Errorf("expected parenthesized tuple, got %q", s)
	}
	return s[1 : len(s)-1], nil
}

// WriteAUT encodes m in Aldebaran format. State names are not written.
func WriteAUT(w io.Writer, m graph.Model) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "des (%d, %d, %d)\n", m.Initial, len(m.Transitions), len(m.States))
	for _, t := range m.Transitions {
		fmt.Fprintf(bw, "(%d, %q, %d)\n", t.From, t.Label, t.To)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
