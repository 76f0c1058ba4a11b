package kvengine

import (
	"fmt"
	"strconv"
	"time"
)

// Apply replays a single Op (as produced by ReplayOps, or carried over a
// replication wire frame) against the store. It covers every mutating
// command the store emits, so a replication slave can stay in sync by
// calling Apply for every frame it receives, in order, without needing to
// know kvengine's internals.
func (s *Store) Apply(op Op) error { //nolint:cyclop
	switch op.Command {
	case "set":
		if len(op.Args) != 2 && len(op.Args) != 3 { //nolint:mnd
			return fmt.Errorf("apply set: %w: want 2 or 3 args, got %d", ErrTransport, len(op.Args))
		}

		if len(op.Args) == 2 || op.Args[2] == "" {
			s.Set(op.Args[0], op.Args[1])

			return nil
		}

		ttlSeconds, err := strconv.ParseFloat(op.Args[2], 64)
		if err != nil {
			return fmt.Errorf("apply set: %w", err)
		}

		s.Set(op.Args[0], op.Args[1], secondsToDuration(ttlSeconds))

		return nil
	case "delete":
		if len(op.Args) != 1 {
			return fmt.Errorf("apply delete: %w: want 1 arg, got %d", ErrTransport, len(op.Args))
		}

		s.Delete(op.Args[0])

		return nil
	case "expire":
		if len(op.Args) != 2 { //nolint:mnd
			return fmt.Errorf("apply expire: %w: want 2 args, got %d", ErrTransport, len(op.Args))
		}

		ttlSeconds, err := strconv.ParseFloat(op.Args[1], 64)
		if err != nil {
			return fmt.Errorf("apply expire: %w", err)
		}

		return s.Expire(op.Args[0], secondsToDuration(ttlSeconds)) //nolint:wrapcheck
	case "incr":
		if len(op.Args) != 1 {
			return fmt.Errorf("apply incr: %w: want 1 arg, got %d", ErrTransport, len(op.Args))
		}

		_, err := s.Incr(op.Args[0])

		return err //nolint:wrapcheck
	case "decr":
		if len(op.Args) != 1 {
			return fmt.Errorf("apply decr: %w: want 1 arg, got %d", ErrTransport, len(op.Args))
		}

		_, err := s.Decr(op.Args[0])

		return err //nolint:wrapcheck
	case "rename":
		if len(op.Args) != 2 { //nolint:mnd
			return fmt.Errorf("apply rename: %w: want 2 args, got %d", ErrTransport, len(op.Args))
		}

		return s.Rename(op.Args[0], op.Args[1]) //nolint:wrapcheck
	case "lpush":
		if len(op.Args) < 2 { //nolint:mnd
			return fmt.Errorf("apply lpush: %w: want key+values, got %d args", ErrTransport, len(op.Args))
		}

		_, err := s.LPush(op.Args[0], op.Args[1:]...)

		return err //nolint:wrapcheck
	case "rpush":
		if len(op.Args) < 2 { //nolint:mnd
			return fmt.Errorf("apply rpush: %w: want key+values, got %d args", ErrTransport, len(op.Args))
		}

		_, err := s.RPush(op.Args[0], op.Args[1:]...)

		return err //nolint:wrapcheck
	case "lpop":
		if len(op.Args) != 1 {
			return fmt.Errorf("apply lpop: %w: want 1 arg, got %d", ErrTransport, len(op.Args))
		}

		_, _, err := s.LPop(op.Args[0])

		return err //nolint:wrapcheck
	case "rpop":
		if len(op.Args) != 1 {
			return fmt.Errorf("apply rpop: %w: want 1 arg, got %d", ErrTransport, len(op.Args))
		}

		_, _, err := s.RPop(op.Args[0])

		return err //nolint:wrapcheck
	case "hset":
		if len(op.Args) != 3 { //nolint:mnd
			return fmt.Errorf("apply hset: %w: want 3 args, got %d", ErrTransport, len(op.Args))
		}

		_, err := s.HSet(op.Args[0], op.Args[1], op.Args[2])

		return err //nolint:wrapcheck
	case "hdel":
		if len(op.Args) < 2 { //nolint:mnd
			return fmt.Errorf("apply hdel: %w: want key+fields, got %d args", ErrTransport, len(op.Args))
		}

		_, err := s.HDel(op.Args[0], op.Args[1:]...)

		return err //nolint:wrapcheck
	case "hincrby":
		if len(op.Args) != 3 { //nolint:mnd
			return fmt.Errorf("apply hincrby: %w: want 3 args, got %d", ErrTransport, len(op.Args))
		}

		delta, err := strconv.ParseInt(op.Args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("apply hincrby: %w", err)
		}

		_, err = s.HIncrBy(op.Args[0], op.Args[1], delta)

		return err //nolint:wrapcheck
	case "publish":
		if len(op.Args) != 2 { //nolint:mnd
			return fmt.Errorf("apply publish: %w: want 2 args, got %d", ErrTransport, len(op.Args))
		}

		s.Publish(op.Args[0], op.Args[1])

		return nil
	case "flushall":
		s.FlushAll()

		return nil
	default:
		return fmt.Errorf("apply %q: %w: unknown command", op.Command, ErrTransport)
	}
}

// secondsToDuration converts a wire ttlSeconds value (a plain decimal
// number of seconds) back into a time.Duration.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
