package proc

import "kthreads/src/defs"

// alloctid returns the next thread id of p. Ids are never reused within a
// process.
func (p *Proc_t) alloctid() defs.Tid_t {
	p.tidlock.Acquire()
	defer p.tidlock.Release()
	tid := p.nexttid
	p.nexttid++
	return tid
}

func (p *Proc_t) resettids() {
	p.tidlock.Acquire()
	defer p.tidlock.Release()
	p.nexttid = 0
}
