package poker

import (
	"sort"

	"github.com/chehsunliu/poker"
)

// HandRank represents the rank of a poker hand
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// HandValue represents a complete evaluation of a hand. RankValue is the raw
// chehsunliu rank where LOWER is better; all tiebreakers are folded into it.
type HandValue struct {
	Rank            HandRank
	RankValue       int
	BestHand        []Card // The 5 cards that make up the best hand
	HandDescription string
}

var rankChars = map[Value]byte{
	Two: '2', Three: '3', Four: '4', Five: '5', Six: '6', Seven: '7',
	Eight: '8', Nine: '9', Ten: 'T', Jack: 'J', Queen: 'Q', King: 'K', Ace: 'A',
}

var suitChars = map[Suit]byte{
	Spades: 's', Hearts: 'h', Diamonds: 'd', Clubs: 'c',
}

// chehsunliu rank classes, 1 = straight flush ... 9 = high card.
var classRanks = [...]HandRank{
	0: HighCard,
	1: StraightFlush, 2: FourOfAKind, 3: FullHouse, 4: Flush,
	5: Straight, 6: ThreeOfAKind, 7: TwoPair, 8: Pair, 9: HighCard,
}

func toLibCard(card Card) poker.Card {
	r, ok := rankChars[card.value]
	if !ok {
		r = '2'
	}
	s, ok := suitChars[card.suit]
	if !ok {
		s = 's'
	}
	return poker.NewCard(string([]byte{r, s}))
}

func toLibCards(cards []Card) []poker.Card {
	out := make([]poker.Card, len(cards))
	for i, c := range cards {
		out[i] = toLibCard(c)
	}
	return out
}

// valueOrder ranks card values with Ace high.
func valueOrder(v Value) int {
	switch v {
	case Ace:
		return 14
	case King:
		return 13
	case Queen:
		return 12
	case Jack:
		return 11
	case Ten:
		return 10
	case Nine:
		return 9
	case Eight:
		return 8
	case Seven:
		return 7
	case Six:
		return 6
	case Five:
		return 5
	case Four:
		return 4
	case Three:
		return 3
	case Two:
		return 2
	default:
		return 0
	}
}

func classToHandRank(rankClass int32) HandRank {
	if rankClass >= 1 && int(rankClass) < len(classRanks) {
		return classRanks[rankClass]
	}
	return HighCard
}

// EvaluateHand evaluates a player's best 5-card hand from their hole cards
// and the community cards.
func EvaluateHand(holeCards []Card, communityCards []Card) HandValue {
	allCards := append([]Card{}, holeCards...)
	allCards = append(allCards, communityCards...)

	rank := poker.Evaluate(toLibCards(allCards))

	return HandValue{
		Rank:            classToHandRank(poker.RankClass(rank)),
		RankValue:       int(rank),
		BestHand:        bestFiveCards(allCards, rank),
		HandDescription: poker.RankString(rank),
	}
}

// bestFiveCards finds the 5-card combination whose evaluation matches the
// best overall rank.
func bestFiveCards(cards []Card, bestRank int32) []Card {
	if len(cards) <= 5 {
		return cards
	}

	for _, combo := range combinations(cards, 5) {
		if poker.Evaluate(toLibCards(combo)) == bestRank {
			return combo
		}
	}

	// Shouldn't happen; fall back to the five highest cards.
	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		return valueOrder(sorted[i].value) > valueOrder(sorted[j].value)
	})
	return sorted[:5]
}

// combinations generates all k-card combinations of the given cards.
func combinations(cards []Card, k int) [][]Card {
	var out [][]Card
	if k > len(cards) || k <= 0 {
		return out
	}

	var walk func(start int, current []Card)
	walk = func(start int, current []Card) {
		if len(current) == k {
			combo := make([]Card, k)
			copy(combo, current)
			out = append(out, combo)
			return
		}
		for i := start; i <= len(cards)-(k-len(current)); i++ {
			walk(i+1, append(current, cards[i]))
		}
	}
	walk(0, nil)
	return out
}

// GetHandDescription returns a human-readable description of a hand
func GetHandDescription(handValue HandValue) string {
	return handValue.HandDescription
}

// CompareHands compares two hand values and returns -1 when handA is worse,
// 0 on a tie and 1 when handA is better. chehsunliu ranks are inverted
// (lower is better), so the comparison flips.
func CompareHands(handA, handB HandValue) int {
	switch {
	case handA.RankValue > handB.RankValue:
		return -1
	case handA.RankValue < handB.RankValue:
		return 1
	default:
		return 0
	}
}
