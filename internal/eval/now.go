package eval

// Now is the Immediate policy: a failed check returns its error.
type Now struct {
	core
}

var _ Evaluator = (*Now)(nil)

// NewNow creates an Immediate evaluator.
func NewNow(cfg Config) *Now {
	return &Now{core: newCore(cfg)}
}

// Check implements Evaluator.
func (n *Now) Check(describe Description, check func() error) error {
	return n.evaluate(describe, check)
}

// Policy implements Evaluator.
func (n *Now) Policy() Policy { return Immediate }
