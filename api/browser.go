package api

import (
	"net/http"
	"strings"
)

var browserAgents = []string{"mozilla", "chrome", "safari", "edg", "firefox", "opera"}

const browserHint = `This endpoint streams ANSI graphics and is meant for a terminal.

Open it from a terminal, for example:
  curl -N http://<host>:<port>/a/<name>?delay=0.04
or on Windows PowerShell:
  curl.exe -N http://<host>:<port>/a/<name>?delay=0.04

Available animations: /a
`

const indexText = `ansitx is running.

Endpoints:
  GET /a                 -> list available animations
  GET /a/{name}          -> stream named animation (terminal only)
       Query: delay (seconds, 0-1], alt (bool), banner (block|ticker), color (bool)
  GET /healthz           -> liveness probe

Browsers do not render the streams. Use a terminal (curl -N ...).
`

// isBrowser guesses whether the request comes from a web browser rather than
// a terminal client.
func isBrowser(r *http.Request) bool {
	ua := strings.ToLower(r.UserAgent())
	for _, agent := range browserAgents {
		if strings.Contains(ua, agent) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/html")
}
