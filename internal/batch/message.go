package batch

// OpImport tags messages of the statement import operation.
const OpImport = "import"

// Message is sent from a worker to the coordinator. The set of
// implementations is closed: Progress, Done and Failed.
type Message interface {
	message()
}

// Progress is sent once per file, before the file is processed.
type Progress struct {
	Op     string
	Index  int
	Status string
}

// Done is the terminal message of a successful batch.
type Done struct {
	Op       string
	Inserted int
	Ignored  int
}

// Failed is the terminal message of a failed batch.
type Failed struct {
	Op      string
	Message string
}

func (Progress) message() {}
func (Done) message()     {}
func (Failed) message()   {}

// Terminal reports whether m ends a worker's message sequence.
func Terminal(m Message) bool {
	switch m.(type) {
	case Done, Failed:
		return true
	default:
		return false
	}
}
