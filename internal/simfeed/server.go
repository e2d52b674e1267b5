package simfeed

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// Server serves synthetic provider payloads from a loopback listener.
// Route paths follow the provider registry table; per-provider
// statistic values let scenarios disagree deliberately.
type Server struct {
	match      Match
	statType   string
	statValues map[string]float64 // provider key -> value

	listener net.Listener
	server   *http.Server
}

// NewServer creates an unstarted simulation server.
func NewServer(match Match, statType string, statValues map[string]float64) *Server {
	return &Server{
		match:      match,
		statType:   statType,
		statValues: statValues,
	}
}

// Start begins serving on a random loopback port and returns the
// base URL.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.server = &http.Server{Handler: mux}
	go s.server.Serve(ln) //nolint:errcheck // closed on shutdown

	return "http://" + ln.Addr().String(), nil
}

// Close stops the listener.
func (s *Server) Close() {
	if s.server != nil {
		_ = s.server.Close()
	}
}

// Env maps every provider base-URL env var onto this server so a
// registry with this environment fans out locally.
func (s *Server) Env(base string) map[string]string {
	vars := []string{
		"THESPORTSDB_BASE_URL",
		"API_SPORTS_SOCCER_BASE_URL",
		"API_SPORTS_BASKETBALL_BASE_URL",
		"ODDS_API_BASE_URL",
		"OFFICIAL_BASE_URL",
		"OPTA_STATS_BASE_URL",
		"STATSBOMB_BASE_URL",
		"SPORTSRADAR_BASE_URL",
		"API_FOOTBALL_BASE_URL",
		"FLASHSCORE_BASE_URL",
		"SOFASCORE_BASE_URL",
	}
	env := make(map[string]string, len(vars)+1)
	for _, v := range vars {
		env[v] = base
	}
	env["SPORTS_RSS_FEEDS"] = base + "/rss"
	return env
}

// handle routes by the provider-specific path segments declared in
// the registry table.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	var payload any

	if strings.HasPrefix(path, "/rss") {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssDocument(s.match)))
		return
	}

	switch {
	case strings.HasPrefix(path, "/events") || strings.HasPrefix(path, "/lookupevent"):
		payload = SportsDBPayload(s.match)
	case strings.HasPrefix(path, "/fixtures/statistics"):
		payload = LabeledStatPayload(s.statType, s.statValue("API_FOOTBALL"))
	case strings.HasPrefix(path, "/fixtures") || strings.HasPrefix(path, "/games"):
		payload = APISportsPayload(s.match)
	case strings.HasPrefix(path, "/scores"):
		payload = OddsAPIPayload(s.match)
	case strings.HasPrefix(path, "/statistics"):
		// OFFICIAL and SPORTSRADAR share this path; one value serves both.
		payload = LabeledStatPayload(s.statType, s.statValue("OFFICIAL"))
	case strings.HasPrefix(path, "/stats"):
		payload = LabeledStatPayload(s.statType, s.statValue("OPTA_STATS"))
	case strings.HasPrefix(path, "/match-stats"):
		payload = LabeledStatPayload(s.statType, s.statValue("STATSBOMB"))
	case strings.HasPrefix(path, "/event-statistics"):
		payload = KeyedStatPayload(s.statType, s.statValue("SOFASCORE"))
	case strings.HasPrefix(path, "/match"):
		payload = TextStatPayload(s.statType, s.statValue("FLASHSCORE"))
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) statValue(provider string) float64 {
	if v, ok := s.statValues[provider]; ok {
		return v
	}
	return 0
}

// rssDocument renders a minimal RSS 2.0 feed with one result headline.
func rssDocument(m Match) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Simulated Sports Wire</title>
    <link>http://localhost/rss</link>
    <description>synthetic results feed</description>
    <item>
      <title>` + Headline(m) + `</title>
      <link>http://localhost/story</link>
      <pubDate>Thu, 16 Jan 2025 02:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`
}
