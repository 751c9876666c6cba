package rpc

import (
	"bufio"
	"bytes"
	"testing"
)

func TestReadLineMessage(t *testing.T) {
	input := []byte("{\"jsonrpc\":\"2.0\"}\n")
	reader := bufio.NewReader(bytes.NewReader(input))

	msg, err := ReadLineMessage(reader)
	if err != nil {
		t.Fatalf("ReadLineMessage error: %v", err)
	}

	if string(msg) != "{\"jsonrpc\":\"2.0\"}" {
		t.Fatalf("unexpected message: %s", string(msg))
	}
}

func TestReadLineMessageSkipsBlankLines(t *testing.T) {
	input := []byte("\r\n\n{\"id\":1}\n")
	reader := bufio.NewReader(bytes.NewReader(input))

	msg, err := ReadLineMessage(reader)
	if err != nil {
		t.Fatalf("ReadLineMessage error: %v", err)
	}
	if string(msg) != "{\"id\":1}" {
		t.Fatalf("unexpected message: %s", string(msg))
	}
}

func TestWriteLineMessageRejectsNewline(t *testing.T) {
	var buf bytes.Buffer
	data := []byte("{\n}")

	if err := WriteLineMessage(&buf, data); err == nil {
		t.Fatalf("expected error for embedded newline")
	}
}

func TestWriteLineMessageAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLineMessage(&buf, []byte("{}")); err != nil {
		t.Fatalf("WriteLineMessage error: %v", err)
	}
	if got := buf.String(); got != "{}\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
