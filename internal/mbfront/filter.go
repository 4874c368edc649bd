package mbfront

// Allow implements the Siemens-specific UnitID acceptance rule (spec.md
// §4.D): unit 255 is only accepted for MEI device identification; unit 1
// is always accepted; everything else is dropped.
func Allow(unitID, functionCode uint8) bool {
	if unitID == 255 && functionCode == MEIFunctionCode {
		return true
	}
	if unitID == 1 {
		return true
	}
	return false
}
