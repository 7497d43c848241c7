package handlers

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		URL string `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"url" maxLength:"2048" minLength:"1"`
	}
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body struct {
		Code     string `doc:"The short code"     example:"aZ3kP9q"                            json:"code"`
		ShortURL string `doc:"The full short URL" example:"http://localhost:8888/api/aZ3kP9q"  json:"shortUrl"`
		LongURL  string `doc:"The original URL"   example:"https://example.com/very/long/path" json:"longUrl"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"aZ3kP9q" path:"code"`
}

// RedirectResponse is the response for a short URL redirect.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `header:"Location"`
	}
}
