package registry

import "github.com/vmihailenco/msgpack/v4"

func msgpackMarshalPanic(val interface{}) []byte {
	payload, err := msgpack.Marshal(val)
	if err != nil {
		panic(err)
	}
	return payload
}

func msgpackUnmarshal(data []byte, val interface{}) error {
	return msgpack.Unmarshal(data, val)
}
