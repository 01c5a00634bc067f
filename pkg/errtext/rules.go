package errtext

import "regexp"

type ruleSpec struct {
	pattern  string
	message  string
	severity Severity
}

func compile(specs []ruleSpec) []Rule {
	out := make([]Rule, len(specs))
	for i, s := range specs {
		out[i] = Rule{
			Pattern:  regexp.MustCompile("(?i)" + s.pattern),
			Message:  s.message,
			Severity: s.severity,
		}
	}
	return out
}

func builtinRules() map[Context][]Rule {
	return map[Context][]Rule{
		General:    compile(generalRules),
		Camera:     compile(cameraRules),
		Microphone: compile(microphoneRules),
		Speaker:    compile(speakerRules),
		Network:    compile(networkRules),
		API:        compile(apiRules),
		Movement:   compile(movementRules),
		Vision:     compile(visionRules),
		Speech:     compile(speechRules),
		Hardware:   compile(hardwareRules),
	}
}

var generalRules = []ruleSpec{
	{`permission denied|access denied`,
		"I don't have permission to access something I need. A file or device may need different permissions.", SeverityError},
	{`not found|no such file|no such device`,
		"I couldn't find something I need. A required file, device, or resource is missing.", SeverityError},
	{`timed? ?out|deadline exceeded`,
		"Something took too long and was cancelled. The network may be slow or a device isn't responding.", SeverityWarning},
	{`out of memory|allocation failed`,
		"I'm running low on memory.", SeverityError},
	{`disk.*full|no space|insufficient space`,
		"The storage device is full. I need more disk space to continue.", SeverityError},
	{`invalid|illegal|bad argument`,
		"I received an input I can't process correctly.", SeverityWarning},
	{`unsupported|not supported`,
		"I tried to use a feature that isn't supported on this system.", SeverityWarning},
	{`init.*failed|initialization failed`,
		"A component failed to start properly. Something may be missing or misconfigured.", SeverityError},
}

var cameraRules = []ruleSpec{
	{`camera.*?(not|cannot).*?(found|detected|open)|can't open camera`,
		"I can't access the camera. It may be disconnected or in use by another application.", SeverityError},
	{`video device.*?busy|camera.*?in use`,
		"The camera is being used by another application.", SeverityWarning},
	{`(no|cannot).*?capture frame|failed to capture|read timeout|empty frame`,
		"I can't capture images from the camera. It may be malfunctioning or disconnected.", SeverityError},
	{`index out of range|invalid.*?camera.*?index`,
		"I can't find a camera at the expected device index.", SeverityError},
	{`v4l2|video4linux`,
		"There's an issue with the camera driver.", SeverityWarning},
	{`exposure|brightness|contrast`,
		"The lighting isn't good enough for the camera.", SeverityInfo},
}

var microphoneRules = []ruleSpec{
	{`microphone.*?(not|cannot).*?(found|detected|open)|no sound card`,
		"I can't access the microphone. It may be disconnected or I may not have permission to use it.", SeverityError},
	{`device busy|microphone.*?busy|microphone.*?in use`,
		"The microphone is being used by something else right now.", SeverityWarning},
	{`recording failed|failed to record|audio capture`,
		"I couldn't record audio from the microphone.", SeverityError},
	{`no .*?input devices|no.*?audio.*?input`,
		"No microphone was detected. Please make sure one is connected.", SeverityError},
	{`alsa|pulseaudio|audio subsystem`,
		"There's an issue with the audio system.", SeverityWarning},
	{`arecord|audio tools missing`,
		"The audio recording tools aren't working. They may be missing.", SeverityError},
	{`speech recognition|transcription`,
		"I had trouble understanding what was said.", SeverityWarning},
	{`too (quiet|silent)|no audio detected`,
		"I couldn't hear anything. Please speak louder or move closer.", SeverityInfo},
}

var speakerRules = []ruleSpec{
	{`speaker.*?(not|cannot).*?(found|detected|open)|no sound card`,
		"I can't access the speaker. It may be disconnected.", SeverityError},
	{`playback failed|failed to play|audio output`,
		"I couldn't play audio through the speaker.", SeverityError},
	{`no .*?output devices|no.*?audio.*?output`,
		"No speakers were detected. Please make sure they are connected.", SeverityError},
	{`text to speech|tts|espeak|synthes`,
		"I had trouble turning text into speech.", SeverityError},
	{`aplay|playback command`,
		"The audio playback command failed.", SeverityError},
}

var networkRules = []ruleSpec{
	{`connection (refused|failed|reset|error|timed? out)`,
		"I couldn't reach the server. It may be down or the network may be having problems.", SeverityError},
	{`network (is )?(unreachable|unavailable)`,
		"The network is unreachable. Please check the internet connection.", SeverityError},
	{`dns|name resolution|no such host`,
		"I couldn't look up the server's address.", SeverityWarning},
	{`tls|ssl|certificate|x509`,
		"There's a problem with the secure connection.", SeverityWarning},
	{`status 5\d\d|http.*?5\d\d`,
		"The server is having problems right now.", SeverityError},
	{`status 4\d\d|http.*?4\d\d`,
		"The server rejected my request.", SeverityWarning},
}

var apiRules = []ruleSpec{
	{`api key|unauthorized|authentication|(status|error) 40[13]`,
		"There's an issue with my API credentials. The key may be invalid or expired.", SeverityError},
	{`rate limit|too many requests|(status|error) 429`,
		"I've hit the service's rate limit and need to wait a moment.", SeverityWarning},
	{`quota exceeded|usage limit|insufficient_quota`,
		"I've used up my service quota.", SeverityError},
	{`bad request|invalid request|(status|error) 400`,
		"The service didn't accept my request.", SeverityWarning},
	{`decode|parse|unmarshal|empty response`,
		"I couldn't understand the service's response.", SeverityWarning},
	{`whisper|transcri`,
		"There was an issue with the speech transcription service.", SeverityWarning},
	{`vision|image`,
		"There was an issue with the image analysis service.", SeverityWarning},
	{`(status|error) 5\d\d|unavailable|server error`,
		"The AI service is having problems right now.", SeverityError},
}

var movementRules = []ruleSpec{
	{`not connected|no broker|connection lost`,
		"I can't move right now because I'm not connected to my motion controller.", SeverityError},
	{`obstacle|collision`,
		"I detected an obstacle and stopped moving for safety.", SeverityWarning},
	{`motor|servo|actuator`,
		"There's an issue with one of my motors.", SeverityError},
	{`joint limit|range of motion`,
		"A joint has reached its limit.", SeverityWarning},
	{`balance|stability|fall`,
		"I'm having trouble keeping my balance.", SeverityWarning},
}

var visionRules = []ruleSpec{
	{`object (detection|recognition)`,
		"I'm having trouble recognizing objects in the image.", SeverityWarning},
	{`lighting|too (dark|bright)`,
		"The lighting is making it hard to see.", SeverityInfo},
	{`focus|blur`,
		"The image is blurry. I can't see clearly.", SeverityWarning},
}

var speechRules = []ruleSpec{
	{`background noise|ambient`,
		"There's too much background noise for me to understand.", SeverityInfo},
	{`no speech|speech detection`,
		"I couldn't detect any speech.", SeverityWarning},
}

var hardwareRules = []ruleSpec{
	{`usb|disconnect`,
		"A hardware device was disconnected or isn't responding.", SeverityError},
	{`driver|firmware`,
		"There's an issue with a hardware driver.", SeverityWarning},
	{`temperature|overheat`,
		"Some of my hardware is overheating.", SeverityWarning},
	{`battery|power`,
		"There's an issue with my power supply.", SeverityWarning},
}
