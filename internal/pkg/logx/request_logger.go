/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains the HTTP request logging middleware. It records method, URI, status and
latency for every request, anonymizes client IPs, and logs successful health checks at
debug level.
*/
package logx

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// anonymizeIP anonymizes the given IP address string.
// For IPv4, it zeros out the last octet; for IPv6, it keeps only the /64 prefix.
// This preserves approximate geolocation while enhancing user privacy.
func anonymizeIP(ipStr string) string {
	host, _, err := net.SplitHostPort(ipStr)
	if err == nil {
		ipStr = host
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "unknown_ip"
	}

	if ip.IsLoopback() {
		return "127.0.0.1"
	}

	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}

	if v6 := ip.To16(); v6 != nil {
		return v6.Mask(net.CIDRMask(64, 128)).String()
	}

	return ipStr
}

// quietPaths are logged at debug level when they succeed.
var quietPaths = map[string]struct{}{
	"/health": {},
}

// RequestLogger returns an HTTP middleware function that logs detailed information about the HTTP request.
// It creates a new logger instance for each request and injects it into the request context.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetReqID(r.Context())

			anonIP := anonymizeIP(r.RemoteAddr)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger := Component("http").With().
				Str("request_id", requestID).
				Str("remote_ip", anonIP).
				Str("request_method", r.Method).
				Str("request_uri", r.RequestURI).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))

			t1 := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()

			// a handler that wrote nothing got an implicit 200; a hijacked one switched protocols
			if status == 0 {
				status = http.StatusOK
				if r.Header.Get("Upgrade") != "" {
					status = http.StatusSwitchingProtocols
				}
			}

			_, quiet := quietPaths[r.URL.Path]

			var logEvent *zerolog.Event
			switch {
			case status >= 500:
				logEvent = logger.Error()
			case status >= 400:
				logEvent = logger.Warn()
			case quiet:
				logEvent = logger.Debug()
			default:
				logEvent = logger.Info()
			}

			logEvent.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(t1)).
				Msg("Request completed")
		}

		return http.HandlerFunc(fn)
	}
}
