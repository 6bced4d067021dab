package server

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"sync"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"sudooom.chat/internal/config"
	"sudooom.chat/internal/connection"
	"sudooom.chat/internal/protocol"
)

// Server WebTransport 接入层
// 每个会话恰好对应一个连接，会话断开即连接进入终态
type Server struct {
	cfg      *config.Config
	connMgr  *connection.Manager
	handler  *protocol.Handler
	presence protocol.Presence
	logger   *slog.Logger
	wtServer *webtransport.Server
	wg       sync.WaitGroup
}

func New(cfg *config.Config, connMgr *connection.Manager, handler *protocol.Handler, presence protocol.Presence) *Server {
	return &Server{
		cfg:      cfg,
		connMgr:  connMgr,
		handler:  handler,
		presence: presence,
		logger:   slog.Default(),
	}
}

func (s *Server) Start(ctx context.Context) error {
	tlsConfig, err := s.loadTLSConfig()
	if err != nil {
		return err
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:        s.cfg.QUIC.MaxIdleTimeout,
		KeepAlivePeriod:       s.cfg.QUIC.KeepAlivePeriod,
		MaxIncomingStreams:    s.cfg.QUIC.MaxIncomingStreams,
		MaxIncomingUniStreams: s.cfg.QUIC.MaxIncomingUniStreams,
		Allow0RTT:             s.cfg.QUIC.Allow0RTT,
		EnableDatagrams:       true, // WebTransport 需要启用数据报支持
	}

	s.wtServer = &webtransport.Server{
		H3: http3.Server{
			Addr:       s.cfg.Server.Addr,
			TLSConfig:  tlsConfig,
			QUICConfig: quicConfig,
		},
		CheckOrigin: func(r *http.Request) bool {
			// TODO: 生产环境应该检查 Origin
			return true
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webtransport", func(w http.ResponseWriter, r *http.Request) {
		session, err := s.wtServer.Upgrade(w, r)
		if err != nil {
			s.logger.Error("WebTransport upgrade failed", "error", err)
			return
		}
		s.wg.Add(1)
		go s.handleSession(ctx, session)
	})

	s.wtServer.H3.Handler = mux

	s.logger.Info("WebTransport server starting", "addr", s.cfg.Server.Addr)
	return s.wtServer.ListenAndServe()
}

func (s *Server) handleSession(ctx context.Context, session *webtransport.Session) {
	defer s.wg.Done()

	c := connection.NewFromWebTransport(session, s.logger)
	s.connMgr.Add(c)
	defer func() {
		// 断开时移除在线状态；未认证的连接没有记录可移除
		if c.UserID() > 0 {
			if err := s.presence.Unregister(ctx, c.UserID(), c.ID()); err != nil {
				s.logger.Error("Failed to unregister presence",
					"conn_id", c.ID(),
					"userId", c.UserID(),
					"error", err)
			}
		}
		s.connMgr.Remove(c.ID())
		c.Close()
	}()

	// 客户端使用单条双向流承载全部上行帧，首帧必须是认证
	stream, err := session.AcceptStream(ctx)
	if err != nil {
		// Session closed before first stream
		return
	}

	// 同步处理，阻塞到流关闭；返回错误表示认证失败
	if err := s.handler.HandleStream(ctx, c, stream); err != nil {
		s.logger.Warn("Auth failed, closing session", "conn_id", c.ID(), "error", err)
		if err := session.CloseWithError(4001, "auth failed"); err != nil {
			s.logger.Error("Failed to close session", "conn_id", c.ID(), "error", err)
		}
		return
	}

	// 流关闭后函数返回，触发 defer 中的清理逻辑
}

func (s *Server) loadTLSConfig() (*tls.Config, error) {
	if s.cfg.QUIC.CertFile != "" && s.cfg.QUIC.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.QUIC.CertFile, s.cfg.QUIC.KeyFile)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Loaded TLS certificate",
			"cert_file", s.cfg.QUIC.CertFile,
			"key_file", s.cfg.QUIC.KeyFile)
		return &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"h3", "webtransport"},
			MinVersion:   tls.VersionTLS13,
		}, nil
	}

	// 开发环境：生成自签名证书
	s.logger.Warn("No TLS certificate configured, using self-signed certificate")
	return generateSelfSignedTLSConfig()
}

// ConnManager 返回连接管理器
func (s *Server) ConnManager() *connection.Manager {
	return s.connMgr
}

func (s *Server) Shutdown() {
	if s.wtServer != nil {
		s.wtServer.Close()
	}
	s.wg.Wait()
}
