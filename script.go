package heapkit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrBadScript indicates a malformed or inconsistent script.
var ErrBadScript = errors.New("heapkit: bad script")

// Op is the kind of a script request.
type Op byte

const (
	OpAllocate Op = 'a'
	OpResize   Op = 'r'
	OpFree     Op = 'f'
)

func (o Op) String() string {
	switch o {
	case OpAllocate:
		return "allocate"
	case OpResize:
		return "resize"
	case OpFree:
		return "free"
	default:
		return fmt.Sprintf("op(%q)", byte(o))
	}
}

// Request is one line of a script.
type Request struct {
	Op   Op
	ID   int
	Size uint64
	Line int
}

// Script is a named sequence of requests:
//
//	a <id> <size>   allocate size bytes as block id
//	r <id> <size>   resize block id
//	f <id>          free block id
//
// Blank lines and lines starting with # are ignored.
type Script struct {
	Name     string
	Requests []Request
}

// LoadScript parses the script file at path.
func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseScript(filepath.Base(path), f)
}

// ParseScript parses a script from r.
func ParseScript(name string, r io.Reader) (*Script, error) {
	s := &Script{Name: name}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		req, err := parseRequest(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", ErrBadScript, name, line, err)
		}
		req.Line = line
		s.Requests = append(s.Requests, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read script %s: %w", name, err)
	}
	return s, nil
}

func parseRequest(fields []string) (Request, error) {
	if len(fields[0]) != 1 {
		return Request{}, fmt.Errorf("unknown request %q", fields[0])
	}

	req := Request{Op: Op(fields[0][0])}
	want := 3
	switch req.Op {
	case OpAllocate, OpResize:
	case OpFree:
		want = 2
	default:
		return Request{}, fmt.Errorf("unknown request %q", fields[0])
	}
	if len(fields) != want {
		return Request{}, fmt.Errorf("%s takes %d arguments, got %d", req.Op, want-1, len(fields)-1)
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil || id < 0 {
		return Request{}, fmt.Errorf("invalid id %q", fields[1])
	}
	req.ID = id

	if want == 3 {
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Request{}, fmt.Errorf("invalid size %q", fields[2])
		}
		req.Size = size
	}
	return req, nil
}
