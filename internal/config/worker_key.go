package config

type WorkerKeyStruct struct {
	PersistAnswersQueue string
	PersistAuditQueue   string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue: "persist_answers_queue",
	PersistAuditQueue:   "persist_audit_queue",
}
