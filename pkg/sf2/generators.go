package sf2

// Generator operators from the SoundFont 2 specification. Only the
// ones the resolver consumes are named.
const (
	genStartAddrOffset       = 0
	genEndAddrOffset         = 1
	genStartLoopAddrOffset   = 2
	genEndLoopAddrOffset     = 3
	genStartAddrCoarseOffset = 4
	genEndAddrCoarseOffset   = 12
	genChorusSend            = 15
	genReverbSend            = 16
	genDelayModEnv           = 25
	genAttackModEnv          = 26
	genHoldModEnv            = 27
	genDecayModEnv           = 28
	genSustainModEnv         = 29
	genReleaseModEnv         = 30
	genDelayVolEnv           = 33
	genAttackVolEnv          = 34
	genHoldVolEnv            = 35
	genDecayVolEnv           = 36
	genSustainVolEnv         = 37
	genReleaseVolEnv         = 38
	genInstrument            = 41
	genKeyRange              = 43
	genVelRange              = 44
	genStartLoopCoarseOffset = 45
	genEndLoopCoarseOffset   = 50
	genCoarseTune            = 51
	genFineTune              = 52
	genSampleID              = 53
	genSampleModes           = 54
	genExclusiveClass        = 57
	genOverridingRootKey     = 58
)

// amount is one raw generator amount. The same two bytes are read as
// a signed short, an unsigned word, or a byte range depending on the
// operator.
type amount [2]byte

func (a amount) short() int {
	return int(int16(uint16(a[0]) | uint16(a[1])<<8))
}

func (a amount) word() int {
	return int(uint16(a[0]) | uint16(a[1])<<8)
}

// sortedRange decodes the low/high byte pair, swapping an inverted
// encoding so Lo <= Hi.
func (a amount) sortedRange() Range {
	lo, hi := int(a[0]), int(a[1])
	if lo > hi {
		lo, hi = hi, lo
	}
	return Range{lo, hi}
}

// genBag is the generator table of one zone bag.
type genBag map[uint16]amount

func buildBag(gens []genRec, from, to int) genBag {
	if from < 0 || to > len(gens) || from >= to {
		return genBag{}
	}
	bag := make(genBag, to-from)
	for _, g := range gens[from:to] {
		bag[g.oper] = g.amount
	}
	return bag
}

func (b genBag) get(oper uint16) (amount, bool) {
	if b == nil {
		return amount{}, false
	}
	a, ok := b[oper]
	return a, ok
}

func (b genBag) getRange(oper uint16) (Range, bool) {
	a, ok := b.get(oper)
	if !ok {
		return Range{}, false
	}
	return a.sortedRange(), true
}

// bagStack holds the up-to-four bags contributing to one zone, in the
// fixed priority order preset-global, preset-local, instrument-global,
// instrument-local. Absent bags are nil. The merge policies below
// replace the source format's implicit inheritance with explicit
// lookups, so each policy can be tested on its own.
type bagStack struct {
	presetGlobal genBag
	presetLocal  genBag
	instGlobal   genBag
	instLocal    genBag
}

// all returns the present bags in priority order.
func (s bagStack) all() []genBag {
	out := make([]genBag, 0, 4)
	for _, b := range []genBag{s.presetGlobal, s.presetLocal, s.instGlobal, s.instLocal} {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

// sum accumulates a signed generator across every bag that defines it.
func (s bagStack) sum(oper uint16) int {
	total := 0
	for _, b := range s.all() {
		if a, ok := b.get(oper); ok {
			total += a.short()
		}
	}
	return total
}

// sumOffset accumulates a sample offset generator together with its
// coarse companion (coarse units are 32768 samples).
func (s bagStack) sumOffset(oper, coarseOper uint16) int {
	total := 0
	for _, b := range s.all() {
		if a, ok := b.get(oper); ok {
			total += a.short()
		}
		if a, ok := b.get(coarseOper); ok {
			total += a.short() * 32768
		}
	}
	return total
}

// firstWins searches instrument-local, instrument-global, preset-local,
// preset-global and returns the first defined value.
func (s bagStack) firstWins(oper uint16) (amount, bool) {
	for _, b := range []genBag{s.instLocal, s.instGlobal, s.presetLocal, s.presetGlobal} {
		if a, ok := b.get(oper); ok {
			return a, true
		}
	}
	return amount{}, false
}

// intersectRange resolves a range generator: the local bag's value if
// present, else the global's, at each level, then the intersection of
// the two levels. A missing range defaults to the full span.
func (s bagStack) intersectRange(oper uint16) Range {
	presetR, presetOK := levelRange(s.presetLocal, s.presetGlobal, oper)
	instR, instOK := levelRange(s.instLocal, s.instGlobal, oper)
	switch {
	case presetOK && instOK:
		return presetR.Intersect(instR)
	case presetOK:
		return presetR
	case instOK:
		return instR
	default:
		return FullRange
	}
}

func levelRange(local, global genBag, oper uint16) (Range, bool) {
	if r, ok := local.getRange(oper); ok {
		return r, true
	}
	return global.getRange(oper)
}

// envelope gathers one envelope kind from the stack. Each stage is
// resolved first-wins; the envelope is present when any stage is.
func (s bagStack) envelope(delay, attack, hold, decay, sustain, release uint16) Envelope {
	env := Envelope{}
	env.DelayTC = s.firstShort(delay)
	env.AttackTC = s.firstShort(attack)
	env.HoldTC = s.firstShort(hold)
	env.DecayTC = s.firstShort(decay)
	env.SustainCB = s.firstShort(sustain)
	env.ReleaseTC = s.firstShort(release)
	env.Present = env.DelayTC != nil || env.AttackTC != nil || env.HoldTC != nil ||
		env.DecayTC != nil || env.SustainCB != nil || env.ReleaseTC != nil
	return env
}

func (s bagStack) firstShort(oper uint16) *int {
	if a, ok := s.firstWins(oper); ok {
		v := a.short()
		return &v
	}
	return nil
}
