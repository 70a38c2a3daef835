package httputil

import (
	"net/http"
	"time"
)

// Clients separates the two HTTP personalities the pipeline needs: plain API
// calls (geocoder, postcode lookup) and image downloads from the listing
// site's CDN, which get browser-like headers.
type Clients struct {
	API   *http.Client
	Media *http.Client
}

func NewClients() *Clients {
	return &Clients{
		API:   &http.Client{Timeout: 30 * time.Second},
		Media: &http.Client{Timeout: 60 * time.Second},
	}
}

// BrowserHeaders sets request headers matching a desktop Chrome session.
// Image CDNs reject bare Go user agents.
func BrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-AU,en;q=0.9")
}
