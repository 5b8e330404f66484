// Command adgen runs the ad generation daemon and talks to it.
//
// "adgen serve" runs the daemon in the foreground. The remaining commands
// (submit, status, watch, jobs, content) are thin clients of the daemon's HTTP
// API; they read the bind address from the configuration file unless --server
// is given, and send the bearer token from --token or ADGEN_TOKEN.
package main
