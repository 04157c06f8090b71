// Package server serves kstats over HTTP as JSON, with the routes of
// the jkstat remote browser:
//
//	GET /kstat/get/{module}/{instance}/{name}    one kstat, by lookup
//	GET /kstat/mget/{module}/{instance}/{names}  several, names separated by ';'
//	GET /kstat/list                              metadata of every kstat
//	GET /kstat/read                              every kstat, read and decoded
//	GET /kstat/chainupdate                       0, or -1 on failure
//	GET /kstat/getkcid                           the kstat chain ID
//
// In the kstat routes an instance of "*" (or -1) matches any
// instance, and a module or name of "*" matches any module or name.
// Every kstat response allows cross-origin requests.
//
// There are also /health, /ready and /metrics (Prometheus).
package server
