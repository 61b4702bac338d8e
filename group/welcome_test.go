package group

import "testing"

func TestCreateWelcomeProducesVerifiableMessage(t *testing.T) {
	creator := testAgent(1)
	invitee := testAgent(2)
	s := New([]byte("test-group"), creator)

	welcome, err := CreateWelcome(s, invitee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(welcome.GroupID) != "test-group" {
		t.Fatalf("unexpected group id: %s", welcome.GroupID)
	}
	if welcome.Epoch != s.Epoch() {
		t.Fatalf("expected welcome epoch to match session epoch")
	}
	if _, ok := welcome.EncryptedGroupSecrets[invitee]; !ok {
		t.Fatalf("expected encrypted secrets for invitee")
	}
	if len(welcome.Tree) == 0 {
		t.Fatalf("expected non-empty tree")
	}
	if err := welcome.Verify(); err != nil {
		t.Fatalf("expected welcome to verify, got %v", err)
	}
}

func TestWelcomeVerifyRejectsEmptyGroupID(t *testing.T) {
	creator := testAgent(1)
	invitee := testAgent(2)
	s := New([]byte("test-group"), creator)

	welcome, err := CreateWelcome(s, invitee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	welcome.GroupID = nil

	if err := welcome.Verify(); err == nil {
		t.Fatalf("expected verify to fail for empty group_id")
	}
}

func TestWelcomeVerifyRejectsEmptyTree(t *testing.T) {
	creator := testAgent(1)
	invitee := testAgent(2)
	s := New([]byte("test-group"), creator)

	welcome, err := CreateWelcome(s, invitee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	welcome.Tree = nil

	if err := welcome.Verify(); err == nil {
		t.Fatalf("expected verify to fail for empty tree")
	}
}

func TestWelcomeAcceptByInviteeRecoversContext(t *testing.T) {
	creator := testAgent(1)
	invitee := testAgent(2)
	s := New([]byte("test-group"), creator)

	welcome, err := CreateWelcome(s, invitee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, err := welcome.Accept(invitee)
	if err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}
	if string(ctx.GroupID) != string(s.Context().GroupID) {
		t.Fatalf("expected recovered group id to match session")
	}
	if ctx.Epoch != s.Epoch() {
		t.Fatalf("expected recovered epoch to match session")
	}
}

func TestWelcomeAcceptRejectsWrongAgent(t *testing.T) {
	creator := testAgent(1)
	invitee := testAgent(2)
	wrongAgent := testAgent(3)
	s := New([]byte("test-group"), creator)

	welcome, err := CreateWelcome(s, invitee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = welcome.Accept(wrongAgent)
	if _, ok := err.(*MemberNotInGroupError); !ok {
		t.Fatalf("expected *MemberNotInGroupError, got %T (%v)", err, err)
	}
}

func TestInviteeKeyDerivationIsDeterministic(t *testing.T) {
	invitee := testAgent(5)
	groupID := []byte("test-group")

	k1 := deriveInviteeKey(invitee, groupID, 5)
	k2 := deriveInviteeKey(invitee, groupID, 5)
	if k1 != k2 {
		t.Fatalf("expected deterministic invitee key derivation")
	}
}

func TestInviteeKeyVariesWithEpoch(t *testing.T) {
	invitee := testAgent(5)
	groupID := []byte("test-group")

	k1 := deriveInviteeKey(invitee, groupID, 1)
	k2 := deriveInviteeKey(invitee, groupID, 2)
	if k1 == k2 {
		t.Fatalf("expected invitee key to vary with epoch")
	}
}

func TestInviteeKeyVariesWithAgent(t *testing.T) {
	groupID := []byte("test-group")
	k1 := deriveInviteeKey(testAgent(5), groupID, 1)
	k2 := deriveInviteeKey(testAgent(6), groupID, 1)
	if k1 == k2 {
		t.Fatalf("expected invitee key to vary with agent")
	}
}
