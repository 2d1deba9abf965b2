package session

import (
	"context"
	"fmt"

	"github.com/emrgen/boxsync/internal/dicom"
	"github.com/emrgen/boxsync/internal/service"
	"github.com/emrgen/boxsync/internal/transport"
	"github.com/sirupsen/logrus"
)

func (s *Session) onTick(event) {
	if s.busy() {
		logrus.Debugf("box %s: abandoned call still running, skipping tick", s.box.Name)
		return
	}
	s.poll()
}

func (s *Session) poll() {
	s.unit = nil
	s.enter(Polling)
	s.launch(func(ctx context.Context) event {
		unit, err := s.peer.PollForWork(ctx)
		return event{kind: evPolled, unit: unit, err: err}
	})
}

func (s *Session) onPolled(e event) {
	if e.err != nil {
		logrus.Warnf("box %s: poll failed: %v", s.box.Name, e.err)
		s.idle(false)
		return
	}

	if e.unit == nil {
		s.idle(true)
		return
	}

	s.liveness.SetOnline(s.box.ID, true)
	s.unit = e.unit
	unit := e.unit

	s.enter(Fetching)
	s.launch(func(ctx context.Context) event {
		data, err := s.peer.FetchPayload(ctx, unit)
		return event{kind: evFetched, unit: unit, data: data, err: err}
	})
}

// onFetched leaves a failed unit pending at the peer; it is offered again
// on a later poll.
func (s *Session) onFetched(e event) {
	if e.err != nil {
		logrus.Warnf("box %s: fetch of transaction %d sequence %d failed: %v",
			s.box.Name, e.unit.TransactionID, e.unit.SequenceNumber, e.err)
		s.idle(false)
		return
	}

	unit, data := e.unit, e.data
	s.enter(Committing)
	s.launch(func(ctx context.Context) event {
		return event{kind: evCommitted, unit: unit, err: s.commit(ctx, unit, data)}
	})
}

// commit decodes the fetched payload and stores it with its ledger entry.
func (s *Session) commit(ctx context.Context, unit *transport.WorkUnit, data []byte) error {
	raw, err := s.compress.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: decompress: %v", dicom.ErrParse, err)
	}

	ds, err := s.codec.Decode(raw)
	if err != nil {
		return err
	}

	if err := s.inbox.CheckDataset(ds, s.cfg.UseExtendedContexts); err != nil {
		return err
	}

	ds, err = s.reverser.Reverse(ctx, ds)
	if err != nil {
		return fmt.Errorf("%w: %w", service.ErrReversal, err)
	}

	entry := service.InboxEntry{
		RemoteBoxID:     s.box.ID,
		RemoteBoxName:   s.box.Name,
		TransactionID:   unit.TransactionID,
		SequenceNumber:  unit.SequenceNumber,
		TotalImageCount: unit.TotalImageCount,
	}
	image, created, err := s.inbox.Receive(ctx, entry, ds)
	if err != nil {
		return err
	}

	logrus.Debugf("box %s: stored image %d from transaction %d sequence %d (created %t)",
		s.box.Name, image.ID, unit.TransactionID, unit.SequenceNumber, created)
	return nil
}

func (s *Session) onCommitted(e event) {
	unit := e.unit

	if e.err != nil {
		class := Classify(e.err)
		if class == ClassCanceled {
			s.idle(false)
			return
		}

		logrus.Errorf("box %s: %s failure on transaction %d sequence %d: %v",
			s.box.Name, class, unit.TransactionID, unit.SequenceNumber, e.err)

		message := e.err.Error()
		s.enter(ReportingFailure)
		s.launch(func(ctx context.Context) event {
			return event{kind: evReported, unit: unit, err: s.peer.ReportFailure(ctx, unit, message)}
		})
		return
	}

	s.enter(Acknowledging)
	s.acknowledge(unit)
	s.liveness.SetOnline(s.box.ID, true)

	// drain the outbox without waiting for the next tick
	s.poll()
}

// acknowledge sends the ack without waiting for it. A lost ack makes the
// peer offer the unit again, which the inbox absorbs.
func (s *Session) acknowledge(unit *transport.WorkUnit) {
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.WatchdogTimeout)
		defer cancel()

		if err := s.peer.Acknowledge(ctx, unit); err != nil {
			logrus.Warnf("box %s: ack of transaction %d sequence %d failed: %v",
				s.box.Name, unit.TransactionID, unit.SequenceNumber, err)
		}
	}()
}

func (s *Session) onReported(e event) {
	if e.err != nil {
		logrus.Warnf("box %s: failure report for transaction %d sequence %d not delivered: %v",
			s.box.Name, e.unit.TransactionID, e.unit.SequenceNumber, e.err)
		s.idle(false)
		return
	}
	s.idle(true)
}

// onWatchdog abandons the cycle without telling the peer, which still
// holds the unit and offers it again.
func (s *Session) onWatchdog(e event) {
	logrus.Errorf("box %s: %v in state %s", s.box.Name, ErrWatchdogTimeout, s.State())
	s.idle(false)
}
