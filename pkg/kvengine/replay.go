package kvengine

// Op is one reconstructable mutation: a command name plus its positional
// arguments, in the same shape Store.emit hands to a MutationFunc.
type Op struct {
	Command string
	Args    []string
}

// ReplayOps returns the sequence of operations that would reconstruct the
// store's current live contents from empty. Used for a replication slave's
// initial full sync, before it starts receiving live mutations.
func (s *Store) ReplayOps() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	var ops []Op

	for key, e := range s.entries {
		if e.expired(now) {
			continue
		}

		switch e.value.Kind {
		case ValueKindString:
			ttlArg := ""
			if e.expiresAt != nil {
				ttlArg = formatTTLSeconds(e.expiresAt.Sub(now))
			}

			ops = append(ops, Op{Command: "set", Args: []string{key, e.value.Str, ttlArg}})

			continue
		case ValueKindList:
			if len(e.value.List) > 0 {
				ops = append(ops, Op{Command: "rpush", Args: append([]string{key}, e.value.List...)})
			}
		case ValueKindHash:
			for field, value := range e.value.Hash {
				ops = append(ops, Op{Command: "hset", Args: []string{key, field, value}})
			}
		}

		if e.expiresAt != nil {
			ops = append(ops, Op{Command: "expire", Args: []string{key, formatTTLSeconds(e.expiresAt.Sub(now))}})
		}
	}

	return ops
}
