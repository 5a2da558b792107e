package typeresolve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// LSPBackend speaks the Language Server Protocol's JSON-RPC framing over a
// long-lived subprocess's stdio. No public jsonrpc2 client exists anywhere
// in the retrieved example corpus (see DESIGN.md), so the Content-Length
// envelope is hand-rolled on encoding/json + bufio rather than adopting an
// out-of-corpus dependency for it.
type LSPBackend struct {
	// Command builds the subprocess invocation for a language server, e.g.
	// exec.Command("pyright-langserver", "--stdio").
	Command func(ctx context.Context) *exec.Cmd
}

// Open starts (or, in a production server, would attach to a pooled) LSP
// subprocess, sends `initialize`/`didOpen`, and returns a session scoped to
// file.
func (b *LSPBackend) Open(ctx context.Context, file, contents string) (Session, error) {
	cmd := b.Command(ctx)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp backend: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp backend: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lsp backend: start: %w", err)
	}

	sess := &lspSession{
		cmd:    cmd,
		conn:   &rpcConn{w: stdin, r: bufio.NewReader(stdout)},
		file:   file,
		nextID: new(atomic.Int64),
	}
	if err := sess.initialize(ctx, contents); err != nil {
		_ = sess.Close()
		return nil, err
	}
	return sess, nil
}

type lspSession struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	conn   *rpcConn
	file   string
	nextID *atomic.Int64
}

func (s *lspSession) initialize(ctx context.Context, contents string) error {
	id := s.nextID.Add(1)
	if err := s.conn.writeRequest(id, "initialize", map[string]any{"processId": nil, "rootUri": nil}); err != nil {
		return err
	}
	if _, err := s.conn.readResponse(); err != nil {
		return err
	}
	return s.conn.writeNotification("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{
			"uri":  "file://" + s.file,
			"text": contents,
		},
	})
}

// Query issues a hover-style request at offset and extracts a declaring
// class name from the response, per whatever convention the concrete
// language server uses to report it in hover text (a pattern match on the
// returned markdown, not modeled further here).
func (s *lspSession) Query(ctx context.Context, offset int, receiverText string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID.Add(1)
	if err := s.conn.writeRequest(id, "textDocument/hover", map[string]any{
		"textDocument": map[string]any{"uri": "file://" + s.file},
		"position":     offsetToLSPPosition(offset),
	}); err != nil {
		return "", false, err
	}
	raw, err := s.conn.readResponse()
	if err != nil {
		return "", false, err
	}
	class, ok := extractClassFromHover(raw)
	return class, ok, nil
}

func (s *lspSession) Close() error {
	_ = s.conn.writeNotification("exit", nil)
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.cmd.Wait()
}

// offsetToLSPPosition is a placeholder line/character conversion; a real
// integration tracks a line-offset table per open file rather than
// recomputing it on every query.
func offsetToLSPPosition(offset int) map[string]any {
	return map[string]any{"line": 0, "character": offset}
}

func extractClassFromHover(raw json.RawMessage) (string, bool) {
	var resp struct {
		Result struct {
			Contents struct {
				Value string `json:"value"`
			} `json:"contents"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", false
	}
	value := resp.Result.Contents.Value
	const marker = "class:"
	idx := strings.Index(value, marker)
	if idx < 0 {
		return "", false
	}
	class := strings.TrimSpace(value[idx+len(marker):])
	if nl := strings.IndexByte(class, '\n'); nl >= 0 {
		class = class[:nl]
	}
	if class == "" {
		return "", false
	}
	return class, true
}

// rpcConn is a minimal Content-Length-framed JSON-RPC 2.0 transport over a
// pair of pipes, sufficient for request/response and fire-and-forget
// notifications — the whole of what this backend needs.
type rpcConn struct {
	w io.Writer
	r *bufio.Reader
}

func (c *rpcConn) writeRequest(id int64, method string, params any) error {
	return c.write(map[string]any{"jsonrpc": "2.0", "id": id, "method": method, "params": params})
}

func (c *rpcConn) writeNotification(method string, params any) error {
	return c.write(map[string]any{"jsonrpc": "2.0", "method": method, "params": params})
}

func (c *rpcConn) write(msg map[string]any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	header := "Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n"
	if _, err := io.WriteString(c.w, header); err != nil {
		return err
	}
	_, err = c.w.Write(body)
	return err
}

func (c *rpcConn) readResponse() (json.RawMessage, error) {
	var length int
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("lsp backend: reading header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "Content-Length:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:")))
			if err != nil {
				return nil, fmt.Errorf("lsp backend: malformed Content-Length: %w", err)
			}
			length = n
		}
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, fmt.Errorf("lsp backend: reading body: %w", err)
	}
	return json.RawMessage(body), nil
}
