package merkle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ruteri/ledger-signer/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leavesFor(n int) ([][]byte, []Hash) {
	records := make([][]byte, n)
	leaves := make([]Hash, n)
	for i := range records {
		records[i] = []byte(fmt.Sprintf("record-%d", i))
		leaves[i] = LeafHash(records[i])
	}
	return records, leaves
}

func TestHashPair_OrderIndependent(t *testing.T) {
	a := LeafHash([]byte("a"))
	b := LeafHash([]byte("b"))
	assert.Equal(t, HashPair(a, b), HashPair(b, a))
	assert.NotEqual(t, HashPair(a, b), HashPair(a, a))
}

func TestBuild_SingleLeaf(t *testing.T) {
	_, leaves := leavesFor(1)
	tree, err := Build(leaves)
	require.NoError(t, err)
	assert.Equal(t, leaves[0], tree.Root())

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	assert.Empty(t, proof)
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)
}

func TestBuild_OddPromotion(t *testing.T) {
	_, leaves := leavesFor(3)
	tree, err := Build(leaves)
	require.NoError(t, err)

	expected := HashPair(HashPair(leaves[0], leaves[1]), leaves[2])
	assert.Equal(t, expected, tree.Root())

	proof, err := tree.Proof(2)
	require.NoError(t, err)
	assert.Equal(t, []Hash{HashPair(leaves[0], leaves[1])}, proof, "promoted leaf has no sibling at level 0")
}

func TestProofs_VerifyAll(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 7, 8, 13, 33, 100} {
		t.Run(fmt.Sprintf("leaves=%d", n), func(t *testing.T) {
			records, leaves := leavesFor(n)
			tree, err := Build(leaves)
			require.NoError(t, err)

			for i := range records {
				proof, err := tree.Proof(i)
				require.NoError(t, err)
				require.NoError(t, Verify(records[i], EncodeProof(proof), tree.Root()))
			}
		})
	}
}

func TestVerify_Tampered(t *testing.T) {
	records, leaves := leavesFor(9)
	tree, err := Build(leaves)
	require.NoError(t, err)

	proof, err := tree.Proof(4)
	require.NoError(t, err)
	encoded := EncodeProof(proof)

	for i := range encoded {
		mutated := append([]byte(nil), encoded...)
		mutated[i] ^= 0x01
		assert.True(t, errors.Is(Verify(records[4], mutated, tree.Root()), interfaces.ErrInvalidProof), "byte %d", i)
	}

	for i := range records[4] {
		mutated := append([]byte(nil), records[4]...)
		mutated[i] ^= 0x80
		assert.True(t, errors.Is(Verify(mutated, encoded, tree.Root()), interfaces.ErrInvalidProof), "record byte %d", i)
	}

	assert.True(t, errors.Is(Verify(records[4], encoded[:len(encoded)-1], tree.Root()), interfaces.ErrInvalidProofSize))
}

func TestHashFromHex(t *testing.T) {
	h := LeafHash([]byte("x"))
	parsed, err := HashFromHex(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = HashFromHex("abcd")
	assert.Error(t, err)
}
