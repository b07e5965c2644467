package credkit

import (
	"context"

	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx context.Context
	src Source
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	rec, err := ts.src.FetchAuthToken(ts.ctx)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{
		AccessToken: rec.AccessToken,
		TokenType:   rec.TokenType,
		Expiry:      rec.Expiry(),
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if rec.RefreshToken != nil {
		tok.RefreshToken = *rec.RefreshToken
	}
	if rec.IDToken != "" {
		tok = tok.WithExtra(map[string]any{"id_token": rec.IDToken})
	}
	return tok, nil
}

// TokenSource adapts src to golang.org/x/oauth2. ctx is used for every fetch.
func TokenSource(ctx context.Context, src Source) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, tokenSource{ctx: ctx, src: src})
}
