// Package config loads vbind.json, the project configuration shared by the
// vbind CLI and the live server.
//
// A minimal file:
//
//	{
//	  "mode": "native",
//	  "template": "page.html",
//	  "data": "data.json",
//	  "live": {"port": 8080},
//	  "log": {"level": "debug"},
//	  "metrics": {"enabled": true}
//	}
//
// Missing fields are filled with defaults; Validate rejects unknown modes,
// out-of-range ports and unknown log levels.
package config
