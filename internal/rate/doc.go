// Package rate throttles failed login attempts with Redis fixed-window counters.
//
// Each failure INCRs a counter and sets its expiry on the first hit of the window. Keys:
//   - <prefix>:email:<normalized email>
//   - <prefix>:ip:<client ip> (when PerIP is set)
//
// A successful login clears both counters.
package rate
