package dto

// TokenRequest exchanges the ingest API key for a reporting token.
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
