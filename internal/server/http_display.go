package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health                 - Model and circuit breaker status")
	fmt.Println("  GET  /stats                  - Server statistics")
	fmt.Println("  GET  /tools                  - Tool catalogue")
	fmt.Printf("  POST %-22s - Run a tool (requires Authorization: Bearer <session token>)\n", ProxyPath)
	fmt.Printf("  POST %-22s - Alias of %s\n", GeneratePath, ProxyPath)
}

// displayAuthInfo shows session verification configuration
func (s *Server) displayAuthInfo() {
	if s.AppConfig == nil {
		return
	}
	authCfg := s.AppConfig.Auth
	fmt.Printf("Session verification: %s\n", authCfg.Mode)
	if authCfg.Cache.Enabled {
		fmt.Printf("  - Verified sessions cached for %s\n", authCfg.Cache.TTL)
	}
	if s.AppConfig.AI.APIKey == "" {
		fmt.Println("WARNING: No upstream API key configured, tool requests will fail!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByToken {
			fmt.Println("  - Per session token rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
