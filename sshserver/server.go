package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"github.com/matt-g-everett/ansitx/stream"
	"pkt.systems/pslog"
)

// Opener resolves animation names into streamers.
type Opener interface {
	Open(ctx context.Context, name string, opts stream.Options) (*stream.Streamer, error)
}

// Server streams animations to SSH clients. The animation is named by the
// remote command, or by the login user when no command is given.
type Server struct {
	Addr        string
	HostKeyPath string
	Listener    net.Listener
	Opener      Opener
	logger      pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Opener == nil {
		return errors.New("opener is required for SSH")
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:    s.Addr,
		Handler: s.handleSession,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	s.logger.Info("ssh server listening", "addr", s.Addr, "fingerprint", ssh.FingerprintSHA256(signer.PublicKey()))
	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	name := animationName(sess.Command(), sess.User())
	log = log.With("animation", name, "remote", sess.RemoteAddr().String(), "transport", "ssh")
	if sshSession := sess.Context().SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	if name == "" {
		log.Info("ssh session rejected", "reason", "missing animation")
		_, _ = io.WriteString(sess, "usage: ssh <host> <animation>\r\n")
		_ = sess.Exit(1)
		return
	}

	_, _, hasPty := sess.Pty()
	ctx := pslog.ContextWithLogger(sess.Context(), log)
	streamer, err := s.Opener.Open(ctx, name, stream.Options{AltScreen: &hasPty})
	if err != nil {
		log.Warn("animation open failed", "err", err)
		_, _ = fmt.Fprintf(sess, "%v\r\n", err)
		_ = sess.Exit(1)
		return
	}

	log.Info("ssh session opened", "session", streamer.ID, "pty", hasPty)
	err = streamer.Run(ctx, &crlfWriter{w: sess})
	log.Info("ssh session closed", "session", streamer.ID, "cycles", streamer.Cycles())
	if err != nil {
		_ = sess.Exit(1)
		return
	}
	_ = sess.Exit(0)
}

func animationName(command []string, user string) string {
	if len(command) > 0 {
		return strings.TrimSpace(command[0])
	}
	return strings.TrimSpace(user)
}

// crlfWriter translates bare line feeds to CRLF for raw-mode terminals.
type crlfWriter struct {
	w   io.Writer
	buf []byte
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	c.buf = c.buf[:0]
	for i, b := range p {
		if b == '\n' && (i == 0 || p[i-1] != '\r') {
			c.buf = append(c.buf, '\r')
		}
		c.buf = append(c.buf, b)
	}
	if _, err := c.w.Write(c.buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
