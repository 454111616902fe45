package ast

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Decode reads one or more SourceUnit documents. Output of `solc --ast-json`
// is accepted as is: the "======= file =======" banners and "JSON AST" lines
// are skipped and the remaining JSON documents are decoded as a stream.
func Decode(r io.Reader) ([]*Node, error) {
	var cleaned bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "=======") || strings.HasPrefix(trimmed, "JSON AST") {
			continue
		}
		cleaned.WriteString(line)
		cleaned.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading syntax tree")
	}

	dec := json.NewDecoder(&cleaned)
	var units []*Node
	for {
		var n Node
		err := dec.Decode(&n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decoding syntax tree document %d", len(units)+1)
		}
		if n.Name != SourceUnit {
			return nil, errors.Errorf("document %d is a %q, expected %s", len(units)+1, n.Name, SourceUnit)
		}
		units = append(units, &n)
	}
	if len(units) == 0 {
		return nil, errors.New("no SourceUnit found")
	}
	return units, nil
}

// DecodeFile reads and decodes the syntax tree stored at path.
func DecodeFile(path string) ([]*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	defer f.Close()
	units, err := Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return units, nil
}
