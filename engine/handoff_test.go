package engine

import (
	"testing"

	"github.com/latr-engine/latr/asset/scene"
	"github.com/latr-engine/latr/types"
)

func bufferWithX(x float32, count int) *TriangleBuffer {
	buf := &TriangleBuffer{}
	for i := 0; i < count; i++ {
		buf.Vertices = append(buf.Vertices, scene.Vertex{X: x, Y: float32(i)})
	}
	buf.Triangles = append(buf.Triangles, [3]uint32{0, 0, 0})
	return buf
}

func paramsWithX(x float32) EngineParams {
	return EngineParams{Camera: EngineCamera{Pos: types.XYZ(x, 0, 0)}}
}

// Call Latest and fail unless it returns an update for tick expSeq.
func expectUpdate(t *testing.T, sub *Subscriber, expSeq uint64) *Frame {
	t.Helper()
	frame, updated, err := sub.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if !updated {
		t.Fatalf("expected an update for tick %d; got none (current tick %d)", expSeq, frame.Params.Seq)
	}
	if frame.Params.Seq != expSeq {
		t.Fatalf("expected frame for tick %d; got %d", expSeq, frame.Params.Seq)
	}
	return frame
}

// Call Latest and fail if it returns an update.
func expectNoUpdate(t *testing.T, sub *Subscriber) *Frame {
	t.Helper()
	frame, updated, err := sub.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if updated {
		t.Fatalf("expected no update; got frame for tick %d", frame.Params.Seq)
	}
	return frame
}

func TestHandoffPairedUpdate(t *testing.T) {
	pub, sub := NewHandoff(4)
	expectNoUpdate(t, sub)

	if seq := pub.Publish(bufferWithX(1, 3), paramsWithX(1)); seq != 1 {
		t.Fatalf("expected first publish to get seq 1; got %d", seq)
	}

	frame := expectUpdate(t, sub, 1)
	if len(frame.Triangles.Vertices) != 3 {
		t.Fatalf("expected 3 vertices; got %d", len(frame.Triangles.Vertices))
	}
	if exp := (scene.Vertex{X: 1, Y: 2}); frame.Triangles.Vertices[2] != exp {
		t.Fatalf("expected vertex 2 to be %v; got %v", exp, frame.Triangles.Vertices[2])
	}

	// Nothing new; the previous frame is kept.
	if frame = expectNoUpdate(t, sub); frame.Params.Seq != 1 {
		t.Fatalf("expected to keep frame for tick 1; got %d", frame.Params.Seq)
	}
}

func TestHandoffNewestWins(t *testing.T) {
	pub, sub := NewHandoff(4)
	for i := 1; i <= 3; i++ {
		pub.Publish(bufferWithX(float32(i), i), paramsWithX(float32(i)))
	}

	// Tick 3 reused the slot of tick 1.
	frame := expectUpdate(t, sub, 3)
	if len(frame.Triangles.Vertices) != 3 || frame.Params.Camera.Pos[0] != 3 {
		t.Fatalf("expected triangles and camera of tick 3; got %d vertices and camera x %f", len(frame.Triangles.Vertices), frame.Params.Camera.Pos[0])
	}
}

func TestHandoffFullChannelsDropOldest(t *testing.T) {
	pub, sub := NewHandoff(1)
	pub.Publish(bufferWithX(1, 1), paramsWithX(1))
	pub.Publish(bufferWithX(2, 1), paramsWithX(2))
	if pub.Dropped() != 2 {
		t.Fatalf("expected the 2 messages of tick 1 to be dropped; got %d", pub.Dropped())
	}

	frame := expectUpdate(t, sub, 2)
	if frame.Triangles.Vertices[0].X != 2 {
		t.Fatalf("expected triangles of tick 2; got x %f", frame.Triangles.Vertices[0].X)
	}

	pub.Publish(bufferWithX(3, 1), paramsWithX(3))
	expectUpdate(t, sub, 3)
}

func TestHandoffSlowSubscriber(t *testing.T) {
	const (
		frames        = 50
		ticksPerFrame = DefaultChannelDepth + 2
	)

	pub, sub := NewHandoff(DefaultChannelDepth)
	var seq uint64
	for frame := 1; frame <= frames; frame++ {
		for i := 0; i < ticksPerFrame; i++ {
			seq = pub.Publish(bufferWithX(float32(seq+1), 1), paramsWithX(float32(seq+1)))
		}

		// Every frame picks up the tick published last.
		got := expectUpdate(t, sub, seq)
		if got.Triangles.Vertices[0].X != got.Params.Camera.Pos[0] {
			t.Fatalf("[frame %d] triangles of tick %f paired with params of tick %f", frame, got.Triangles.Vertices[0].X, got.Params.Camera.Pos[0])
		}
	}

	if exp := uint64(2 * frames * (ticksPerFrame - DefaultChannelDepth)); pub.Dropped() != exp {
		t.Fatalf("expected %d dropped messages; got %d", exp, pub.Dropped())
	}
}

func TestHandoffUnpairedMessagesAreHeldBack(t *testing.T) {
	pub, sub := NewHandoff(4)
	pub.Publish(bufferWithX(1, 1), paramsWithX(1))
	expectUpdate(t, sub, 1)

	pub.Publish(bufferWithX(2, 1), paramsWithX(2))
	stolen := <-pub.h.paramsCh

	frame := expectNoUpdate(t, sub)
	if frame.Params.Seq != 1 || frame.Triangles.Vertices[0].X != 1 {
		t.Fatalf("expected to keep the frame of tick 1; got tick %d", frame.Params.Seq)
	}

	pub.h.paramsCh <- stolen
	frame = expectUpdate(t, sub, 2)
	if frame.Triangles.Vertices[0].X != 2 {
		t.Fatalf("expected triangles of tick 2; got x %f", frame.Triangles.Vertices[0].X)
	}
}

func TestHandoffDisconnect(t *testing.T) {
	pub, sub := NewHandoff(4)
	pub.Publish(bufferWithX(1, 1), paramsWithX(1))
	pub.Close()
	pub.Close()

	// Updates published before closing are still delivered.
	expectUpdate(t, sub, 1)

	_, updated, err := sub.Latest()
	if err != ErrSimulationDisconnected || updated {
		t.Fatalf("expected to get ErrSimulationDisconnected without an update; got %v, %t", err, updated)
	}
}

func TestPublishAlternatesSlots(t *testing.T) {
	pub, _ := NewHandoff(8)
	for i := 0; i < 4; i++ {
		pub.Publish(bufferWithX(float32(i), 1), paramsWithX(float32(i)))
	}
	for i := 0; i < 4; i++ {
		msg := <-pub.h.slotCh
		if msg.Seq != uint64(i+1) || msg.Slot != i%2 {
			t.Fatalf("expected message %d to announce slot %d for tick %d; got %+v", i, i%2, i+1, msg)
		}
	}
	if pub.writable != 0 {
		t.Fatalf("expected slot 0 to be writable; got %d", pub.writable)
	}
}
