package config

type WorkerKeyStruct struct {
	PersistViolationsQueue  string
	PersistAnswersQueue     string
	PersistSubmissionsQueue string
	PersistScoresQueue      string
}

var WorkerKey = &WorkerKeyStruct{
	PersistViolationsQueue:  "persist_violations_queue",
	PersistAnswersQueue:     "persist_answers_queue",
	PersistSubmissionsQueue: "persist_submissions_queue",
	PersistScoresQueue:      "persist_scores_queue",
}
