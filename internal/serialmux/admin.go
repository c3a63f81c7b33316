package serialmux

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"tailscale.com/tsweb"
)

// Commander sends a raw AT command to the radio and returns its reply.
type Commander interface {
	SendRaw(command string) (string, error)
}

var sendCommandTemplate = template.Must(template.New("send-command").Parse(`<!DOCTYPE html>
<html>
<head><title>siklink: send command</title></head>
<body>
<form method="POST" action="send-command-api">
  <label>AT<input name="command" autofocus></label>
  <button type="submit">Send</button>
</form>
<h3>Serial tail</h3>
<pre id="tail"></pre>
<script>
const tail = document.getElementById("tail");
const events = new EventSource("tail");
events.onmessage = (e) => { tail.textContent += e.data + "\n"; };
</script>
</body>
</html>
`))

// AttachAdminRoutes attaches radio debugging endpoints to the given mux under
// /debug/. These routes are meant for localhost or tailnet access only.
func AttachAdminRoutes(mux *http.ServeMux, cmd Commander, lines *Broadcaster) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("send-command", "send an AT command to the radio", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := sendCommandTemplate.Execute(w, nil); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
		}
	})

	// The "AT" prefix is added by the client; callers send e.g. "I5" or "S3=25".
	debug.HandleSilentFunc("send-command-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		command = strings.TrimPrefix(strings.TrimPrefix(command, "AT"), "at")
		if command == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}
		reply, err := cmd.SendRaw(command)
		if err != nil {
			http.Error(w, fmt.Sprintf("Command AT%s failed: %v", command, err), http.StatusBadGateway)
			return
		}
		io.WriteString(w, reply)
	})

	// Server-Sent Events stream of every raw line read while streaming.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, c := lines.Subscribe()
		defer lines.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		flusher.Flush()

		for {
			select {
			case payload, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", strings.TrimRight(payload, "\r")); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
