package bus

// Ingress topics consumed by the calculation engine
const (
	TopicVoltageData        = "voltage/data"
	TopicMotorData          = "motor/data"
	TopicADCStatus          = "adc/status"
	TopicCalculationCommand = "calculation/command"
)

// Egress topics emitted by the calculation engine
const (
	TopicFFTMags           = "fft_mags/data"
	TopicFFTPhases         = "fft_phases/data"
	TopicSignals           = "signals/data"
	TopicSignal            = "signal/data"
	TopicBField            = "bfield/data"
	TopicCalculationStatus = "calculation/status"
)

// EngineIngress lists every topic the engine subscribes to
func EngineIngress() []string {
	return []string{TopicVoltageData, TopicMotorData, TopicADCStatus, TopicCalculationCommand}
}

// EngineEgress lists every topic the engine publishes
func EngineEgress() []string {
	return []string{TopicFFTMags, TopicFFTPhases, TopicSignals, TopicSignal, TopicBField, TopicCalculationStatus}
}

// MotorReading is the payload of motor/data: the current rotor angle in
// radians within [0, 2pi) and the rotation frequency in Hz
type MotorReading struct {
	Theta float64 `json:"theta"`
	Freq  float64 `json:"freq"`
}

// ADCStatus is the payload of adc/status
type ADCStatus struct {
	SampleRate float64 `json:"sample_rate"`
	NBuf       int     `json:"nbuf"`
}
