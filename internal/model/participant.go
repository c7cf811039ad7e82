package model

// BotParticipantID is the reserved identity of the automated responder.
const BotParticipantID = "lingo-bot"

type ParticipantKind int

const (
	KindHuman ParticipantKind = iota
	KindBot
)

func (k ParticipantKind) String() string {
	if k == KindBot {
		return "bot"
	}
	return "human"
}

// Participant is a conversation member tagged as a human or the bot.
type Participant struct {
	ID   string
	Kind ParticipantKind
}

// ParseParticipant tags id, recognising botID as the bot participant.
func ParseParticipant(id, botID string) Participant {
	if botID == "" {
		botID = BotParticipantID
	}
	if id == botID {
		return Participant{ID: id, Kind: KindBot}
	}
	return Participant{ID: id, Kind: KindHuman}
}

func (p Participant) IsBot() bool {
	return p.Kind == KindBot
}
