package relay

import (
	"fmt"
	"net"

	"github.com/pion/logging"
	"github.com/pion/turn/v3"
	log "github.com/sirupsen/logrus"
)

// Authenticator returns the credential expected for a still-valid username
type Authenticator interface {
	Authenticate(username string) (string, error)
}

// Config for the embedded TURN relay
type Config struct {
	ListenAddress string
	PublicIP      string
	Realm         string
}

// AuthHandler validates time-windowed TURN REST usernames against the shared secret
func AuthHandler(auth Authenticator) turn.AuthHandler {
	return func(username, realm string, srcAddr net.Addr) ([]byte, bool) {
		password, err := auth.Authenticate(username)
		if err != nil {
			log.WithError(err).WithField("src", srcAddr).Debug("turn authentication rejected")
			return nil, false
		}

		return turn.GenerateAuthKey(username, realm, password), true
	}
}

// Server is a UDP TURN relay
type Server struct {
	server *turn.Server
	conn   net.PacketConn
}

// NewServer starts listening and serving TURN on cfg.ListenAddress
func NewServer(cfg Config, auth Authenticator) (*Server, error) {
	relayIP := net.ParseIP(cfg.PublicIP)
	if relayIP == nil {
		return nil, fmt.Errorf("invalid relay public ip %q", cfg.PublicIP)
	}

	conn, err := net.ListenPacket("udp4", cfg.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddress, err)
	}

	loggerFactory := logging.NewDefaultLoggerFactory()
	loggerFactory.DefaultLogLevel = pionLogLevel(log.GetLevel())

	server, err := turn.NewServer(turn.ServerConfig{
		Realm:         cfg.Realm,
		AuthHandler:   AuthHandler(auth),
		LoggerFactory: loggerFactory,
		PacketConnConfigs: []turn.PacketConnConfig{
			{
				PacketConn: conn,
				RelayAddressGenerator: &turn.RelayAddressGeneratorStatic{
					RelayAddress: relayIP,
					Address:      "0.0.0.0",
				},
			},
		},
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create turn server: %w", err)
	}

	log.Infof("turn relay listening on %s (realm %s, relay ip %s)", conn.LocalAddr(), cfg.Realm, relayIP)

	return &Server{server: server, conn: conn}, nil
}

// Addr returns the address the relay is listening on
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Close stops the relay and releases all allocations
func (s *Server) Close() error {
	return s.server.Close()
}

func pionLogLevel(level log.Level) logging.LogLevel {
	switch level {
	case log.TraceLevel:
		return logging.LogLevelTrace
	case log.DebugLevel:
		return logging.LogLevelDebug
	case log.InfoLevel:
		return logging.LogLevelInfo
	case log.WarnLevel:
		return logging.LogLevelWarn
	default:
		return logging.LogLevelError
	}
}
