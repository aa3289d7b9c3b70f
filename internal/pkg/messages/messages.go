package messages

const (
	st = "VOXPAGE/"
	// Inform queue name for conversion completion emails
	Inform = st + "Inform"
)
