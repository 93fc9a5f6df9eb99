package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintRaw outputs JSON text received from the server, indented
func (o *Output) PrintRaw(data []byte) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		fmt.Fprintln(o.w, string(data))
		return
	}
	o.printJSON(v)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case LoginResult:
		o.printLoginResult(v)
	case AuthCheck:
		o.printAuthCheck(v)
	case ServerList:
		o.printServerList(v)
	case ServerNames:
		o.printServerNames(v)
	case PlayerList:
		o.printPlayerList(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// LoginResult response type
type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Session string `json:"session"`
}

// AuthCheck response type
type AuthCheck struct {
	LoggedIn    bool   `json:"loggedIn"`
	AuthEnabled bool   `json:"authEnabled"`
	Username    string `json:"username,omitempty"`
	Permission  string `json:"permission,omitempty"`
}

// Server response type
type Server struct {
	Name          string `json:"name"`
	PlayerCount   int    `json:"playerCount"`
	Version       string `json:"version,omitempty"`
	OnlinePlayers *int   `json:"onlinePlayers,omitempty"`
}

// ServerList response type
type ServerList struct {
	Servers []Server `json:"servers"`
}

// ServerNames response type
type ServerNames struct {
	Servers []string `json:"servers"`
}

// PlayerList response type
type PlayerList struct {
	Players []string `json:"players"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printLoginResult(r LoginResult) {
	fmt.Fprintln(o.w, r.Message)
	fmt.Fprintf(o.w, "Token: %s\n", r.Session)
}

func (o *Output) printAuthCheck(c AuthCheck) {
	switch {
	case !c.AuthEnabled:
		fmt.Fprintln(o.w, "Authentication is disabled")
	case c.LoggedIn:
		fmt.Fprintf(o.w, "Logged in as %s (%s)\n", c.Username, c.Permission)
	default:
		fmt.Fprintln(o.w, "Not logged in")
	}
}

func (o *Output) printServerList(l ServerList) {
	if len(l.Servers) == 0 {
		fmt.Fprintln(o.w, "No servers")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVER\tPLAYERS\tVERSION")
	for _, s := range l.Servers {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.PlayerCount, s.Version)
	}
	_ = tw.Flush()
}

func (o *Output) printServerNames(n ServerNames) {
	for _, s := range n.Servers {
		fmt.Fprintln(o.w, s)
	}
}

func (o *Output) printPlayerList(l PlayerList) {
	if len(l.Players) == 0 {
		fmt.Fprintln(o.w, "No players")
		return
	}
	for _, p := range l.Players {
		fmt.Fprintln(o.w, p)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}
