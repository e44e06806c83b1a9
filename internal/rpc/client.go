package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/remiges-tech/phonecomplete"
)

// defaultCallTimeout bounds a call whose context has no deadline.
const defaultCallTimeout = 5 * time.Second

// Client connects to the completion daemon. Each call uses its own connection.
type Client struct {
	network string
	addr    string
}

// NewClient creates a client for the server at addr on network ("unix" or "tcp").
func NewClient(network, addr string) *Client {
	return &Client{network: network, addr: addr}
}

// Complete sends a get_completion request. The field is passed through for
// compatibility and ignored by the server.
func (c *Client) Complete(ctx context.Context, field, search string) (*CompletionResult, error) {
	var result CompletionResult
	err := c.call(ctx, MethodGetCompletion, CompletionParams{Field: field, Search: search}, &result)
	if err != nil {
		return nil, err
	}
	if result.Matches == nil {
		result.Matches = []phonecomplete.Match{}
	}
	return &result, nil
}

// Healthcheck sends a healthcheck request.
func (c *Client) Healthcheck(ctx context.Context) (*HealthResult, error) {
	var result HealthResult
	if err := c.call(ctx, MethodHealthcheck, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Message sends a message request.
func (c *Client) Message(ctx context.Context) (string, error) {
	var result MessageResult
	if err := c.call(ctx, MethodMessage, nil, &result); err != nil {
		return "", err
	}
	return result.Message, nil
}

// Rebuild asks the daemon to rebuild its index and returns the build ID.
func (c *Client) Rebuild(ctx context.Context) (string, error) {
	var result RebuildResult
	if err := c.call(ctx, MethodRebuild, nil, &result); err != nil {
		return "", err
	}
	return result.BuildID, nil
}

func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, c.network, c.addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	deadline, _ := ctx.Deadline()
	conn.SetDeadline(deadline)

	req := Request{
		ID:     uuid.NewString(),
		Method: method,
		Params: params,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	// Read response
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		return fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.ID != req.ID {
		return fmt.Errorf("response id %q does not match request id %q", resp.ID, req.ID)
	}
	if resp.Error != "" {
		return &Error{Code: resp.Code, Message: resp.Error}
	}
	return remarshal(resp.Result, result)
}
