// Package launch locates a credential payload across the surfaces that can
// embed the mini application.
//
// Depending on which client surface hosts the app, the payload may arrive
// through the runtime's initialization channel, through a structured launch
// parameters object, or only by reaching into the runtime's global
// application object once it signals readiness. Extract tries each candidate
// in priority order and normalizes every hit into the same payload shape
// before handing it to the identity parser. When every candidate fails, an
// explicitly enabled synthetic placeholder identity can keep the UI usable
// in bare-browser previews; it is marked so downstream code never mistakes
// it for a real session.
//
// Environment signals (runtime object present, init data present, URL and
// user-agent and referrer markers) feed diagnostics and gate the direct
// runtime read. They never substitute for signature verification.
package launch
