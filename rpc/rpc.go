package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/ballrace/engine"
	"github.com/wfunc/ballrace/logger"
	"github.com/wfunc/ballrace/models"
	"github.com/wfunc/ballrace/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the
// caller before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes operator controls over net/rpc. The WebSocket
// admin path checks lobby membership; this one is reached over the
// operations network, so the requester ID is taken at face value.
type AdminService struct {
	engine    *engine.Engine
	purchases *services.PurchaseService
}

// NewAdminService creates a new AdminService.
func NewAdminService(e *engine.Engine, ps *services.PurchaseService) *AdminService {
	return &AdminService{engine: e, purchases: ps}
}

type AdminArgs struct {
	RequesterID string
}

type AdminReply struct {
	OK bool
}

// ForceStart promotes the lobby immediately.
func (as *AdminService) ForceStart(args *AdminArgs, reply *AdminReply) error {
	if err := as.engine.ForceStart(args.RequesterID); err != nil {
		return err
	}
	reply.OK = true
	return nil
}

// Reset discards any running race and clears the lobby.
func (as *AdminService) Reset(args *AdminArgs, reply *AdminReply) error {
	if err := as.engine.Reset(args.RequesterID); err != nil {
		return err
	}
	reply.OK = true
	return nil
}

type HistoryArgs struct{}

type HistoryReply struct {
	Races []models.RaceSummary
}

// GetHistory returns the recent race summaries held in memory.
func (as *AdminService) GetHistory(args *HistoryArgs, reply *HistoryReply) error {
	reply.Races = as.engine.History()
	return nil
}

type PlayerStatsArgs struct {
	UserID string
}

type PlayerStatsReply struct {
	Data map[string]interface{}
}

// GetPlayerStats returns a player's cumulative purchase totals.
func (as *AdminService) GetPlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	data, err := as.purchases.GetPlayerStats(args.UserID)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}
