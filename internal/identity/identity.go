// Package identity holds the constant device-identity tuple the honeypot
// presents to both wire protocols. Values are fixed at compile time so the
// fingerprint an attacker observes never varies between deployments.
package identity

// Device is the canned Siemens S7-1200 identity returned through Modbus
// MEI-14 (function 0x2B, sub-function 0x0E) and echoed in spirit by the
// S7comm SZL module-identification reply.
type Device struct {
	VendorName         string
	ProductCode        string
	ProductName        string
	ModelName          string
	MajorMinorRevision string
}

// S7-1200 v4.2 — matches the tuple named in the honeypot's data model.
var Device7200 = Device{
	VendorName:         "SIEMENS AG",
	ProductCode:        "6ES7",
	ProductName:        "SIMATIC PLC",
	ModelName:          "S7-1200",
	MajorMinorRevision: "4.2",
}
