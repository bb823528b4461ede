// Package rpc exposes an Engine over net/rpc, so a store can be served to
// remote clients without embedding it in the same process.
package rpc

import (
	"net"
	"net/rpc"

	"kvdb/engine"
)

// SetArgs is the request for Service.Set.
type SetArgs struct {
	Key   int64
	Value []byte
}

// GetArgs is the request for Service.Get.
type GetArgs struct {
	Key int64
}

// RemoveArgs is the request for Service.Remove.
type RemoveArgs struct {
	Key int64
}

// ValueReply is the response shape shared by Set, Get, and Remove: whether a
// value exists (for Get) or existed previously (for Set, Remove), and that
// value's bytes.
type ValueReply struct {
	Exists bool
	Value  []byte
}

// Service adapts an *engine.Engine to net/rpc's calling convention: each
// exported method takes (args, reply *T) and returns only error, with
// application-level outcomes carried in the reply.
type Service struct {
	engine *engine.Engine
}

// NewService wraps e for serving over net/rpc.
func NewService(e *engine.Engine) *Service {
	return &Service{engine: e}
}

// Set stores args.Value under args.Key and reports the value it replaced,
// if any.
func (s *Service) Set(args *SetArgs, reply *ValueReply) error {
	prev, had, err := s.engine.Set(args.Key, args.Value)
	if err != nil {
		return err
	}
	reply.Exists = had
	reply.Value = prev
	return nil
}

// Get reports the value bound to args.Key, if any.
func (s *Service) Get(args *GetArgs, reply *ValueReply) error {
	v, ok, err := s.engine.Get(args.Key)
	if err != nil {
		return err
	}
	reply.Exists = ok
	reply.Value = v
	return nil
}

// Remove deletes args.Key and reports the value it held, if any.
func (s *Service) Remove(args *RemoveArgs, reply *ValueReply) error {
	prev, had, err := s.engine.Remove(args.Key)
	if err != nil {
		return err
	}
	reply.Exists = had
	reply.Value = prev
	return nil
}

// Serve registers svc under the name "Store" and accepts connections on lis
// until lis is closed or an unrecoverable accept error occurs.
func Serve(lis net.Listener, svc *Service) error {
	server := rpc.NewServer()
	if err := server.RegisterName("Store", svc); err != nil {
		return err
	}
	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		go server.ServeConn(conn)
	}
}
