package reply

import "github.com/zhouzirui/mindwell/backend/internal/analysis/triage"

// CrisisTemplate is the single, fixed reply to a crisis utterance.
const CrisisTemplate = "I'm very concerned about what you've shared. Your safety is the most important thing right now. Please reach out to a crisis hotline immediately or go to your nearest emergency room. You don't have to face this alone - there are people who want to help. Would you like me to provide emergency contact information?"

// Greeting is the opening line shown before the first turn.
const Greeting = "Hello! I'm your AI mental health companion. I'm here to listen and provide support. How are you feeling today?"

var pools = map[triage.Category][]string{
	triage.Anxiety: {
		"It sounds like you're feeling anxious right now. That's completely understandable. Try taking a few deep breaths with me - breathe in for 4 counts, hold for 4, then out for 4. What's contributing to these anxious feelings?",
		"Anxiety can be overwhelming, but you're not alone in this. One technique that helps many people is grounding - can you name 5 things you can see, 4 things you can touch, 3 things you can hear, 2 things you can smell, and 1 thing you can taste?",
		"I hear that you're feeling anxious. That takes courage to share. Sometimes anxiety is our mind's way of trying to protect us. What specific thoughts or situations are triggering these feelings?",
	},
	triage.Sadness: {
		"I'm sorry you're feeling this way. Your feelings are valid and it's okay to feel sad sometimes. Would you like to talk about what's been weighing on your mind lately?",
		"It takes strength to recognize and express when you're struggling. Depression can make everything feel heavy, but small steps can help. Have you been able to do any activities that usually bring you even a little joy?",
		"Thank you for trusting me with how you're feeling. Sadness is a natural human emotion, though I know it doesn't make it any less difficult. What kind of support would be most helpful for you right now?",
	},
	triage.Neutral: {
		"Thank you for sharing that with me. I'm here to listen and support you. Can you tell me more about what you're experiencing?",
		"It sounds like you're going through something difficult. Your feelings are completely valid. What would be most helpful to talk about right now?",
		"I appreciate you opening up. Taking care of your mental health is so important. What brings you here today?",
		"That sounds challenging to deal with. You're taking a positive step by reaching out for support. How long have you been feeling this way?",
		"I'm glad you're here. Sometimes just having someone to talk to can make a difference. What's on your mind today?",
	},
}

// Pool returns a copy of the reply pool for a non-crisis category.
func Pool(c triage.Category) []string {
	return append([]string(nil), pools[c]...)
}
