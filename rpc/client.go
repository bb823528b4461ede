package rpc

import "net/rpc"

// Client is a thin wrapper over net/rpc's client exposing the store's three
// operations with Go-shaped signatures instead of net/rpc's (args, reply)
// convention.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a Service listening at addr.
func Dial(addr string) (*Client, error) {
	c, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: c}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Set stores value under key, returning the value it replaced, if any.
func (c *Client) Set(key int64, value []byte) (prev []byte, hadPrev bool, err error) {
	var reply ValueReply
	if err := c.rpc.Call("Store.Set", &SetArgs{Key: key, Value: value}, &reply); err != nil {
		return nil, false, err
	}
	return reply.Value, reply.Exists, nil
}

// Get returns the value bound to key, if any.
func (c *Client) Get(key int64) (value []byte, ok bool, err error) {
	var reply ValueReply
	if err := c.rpc.Call("Store.Get", &GetArgs{Key: key}, &reply); err != nil {
		return nil, false, err
	}
	return reply.Value, reply.Exists, nil
}

// Remove deletes key, returning the value it held, if any.
func (c *Client) Remove(key int64) (prev []byte, hadPrev bool, err error) {
	var reply ValueReply
	if err := c.rpc.Call("Store.Remove", &RemoveArgs{Key: key}, &reply); err != nil {
		return nil, false, err
	}
	return reply.Value, reply.Exists, nil
}
