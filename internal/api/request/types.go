package request

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

// maxBodySize bounds login bodies
const maxBodySize = 64 << 10

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DecodeLogin reads a login from a JSON body or from form fields
func DecodeLogin(w http.ResponseWriter, r *http.Request) (LoginRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		// PostFormValue parses either form encoding on first use
		return LoginRequest{
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
		}, nil
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return LoginRequest{}, fmt.Errorf("decode body: %w", err)
	}
	return req, nil
}
