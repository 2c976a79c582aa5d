package config

type WorkerKeyStruct struct {
	RescoreExamsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	RescoreExamsQueue: "rescore_exams_queue",
}
