// Package httpapi serves the sync surface over HTTP with chi.
//
// Routes:
//
//	GET  /healthz                        liveness
//	GET  /readyz                         database ping
//	GET  /metrics                        Prometheus scrape
//	GET  /api/db?what=chg&region=R       change manifest of a region
//	GET  /api/db?what=nk&region=R        live sites of a region
//	GET  /api/db?what=ctrls&region=R     live inspections of a region
//	GET  /api/db?what=site&id=ID         one site with its live inspections
//	GET  /api/db?what=img&imgPath=P      photo bytes
//	GET  /api/db?what=dpl                duplicate sweep, {"count":n}
//	POST /api/db?what=nk&region=R        site upsert
//	POST /api/db?what=img&imgPath=P      photo upload, {"ok":n}
//	POST /api/regions                    region list sync
//
// Everything under /api requires a bearer token. Errors are answered as
// {"error":"..."}.
package httpapi
