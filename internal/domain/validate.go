package domain

// ValidateQuiz checks that quiz metadata and questions can drive a session.
// All failures wrap ErrConfiguration.
func ValidateQuiz(quiz Quiz, questions []Question) error {
	if quiz.Status == StatusInactive {
		return configErrorf("quiz %s is not active", quiz.ID)
	}
	return ValidateContent(quiz, questions)
}

// ValidateContent is ValidateQuiz without the status check, for stored or archived quizzes.
func ValidateContent(quiz Quiz, questions []Question) error {
	if quiz.TimeLimit <= 0 {
		return configErrorf("quiz %s has no time limit", quiz.ID)
	}
	if quiz.PassPercentage < 0 || quiz.PassPercentage > 100 {
		return configErrorf("quiz %s pass percentage %d outside 0..100", quiz.ID, quiz.PassPercentage)
	}
	if len(questions) == 0 {
		return configErrorf("quiz %s has no questions", quiz.ID)
	}

	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if _, dup := seen[q.ID]; dup {
			return configErrorf("duplicate question id %s", q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := ValidateQuestion(q); err != nil {
			return err
		}
	}
	return nil
}

// ValidateQuestion enforces the per-question invariants: a known type, at least two
// options with unique ids, at least one correct option, and exactly one for SINGLE.
func ValidateQuestion(q Question) error {
	if q.Type != Single && q.Type != Multiple {
		return configErrorf("question %s has unknown type %q", q.ID, q.Type)
	}
	if len(q.Options) < 2 {
		return configErrorf("question %s needs at least 2 options", q.ID)
	}

	optionIDs := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := optionIDs[opt.ID]; dup {
			return configErrorf("question %s has duplicate option id %s", q.ID, opt.ID)
		}
		optionIDs[opt.ID] = struct{}{}
	}

	correct := len(q.CorrectOptionIDs())
	switch {
	case correct == 0:
		return configErrorf("question %s has no correct option", q.ID)
	case q.Type == Single && correct != 1:
		return configErrorf("single-choice question %s has %d correct options", q.ID, correct)
	}
	return nil
}
